package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind discriminates what an ActionProposal asks to do.
type ActionKind string

const (
	ActionRecordPayment  ActionKind = "record_payment"
	ActionRecordMovement ActionKind = "record_stock_movement"
	ActionClarification  ActionKind = "clarification"
)

// ActionProposal is the structured output of the AI assistant: a proposed
// ledger write, or a clarifying question when the input is ambiguous. It is
// never executed without explicit user confirmation.
type ActionProposal struct {
	Action        ActionKind      `json:"action" jsonschema:"enum=record_payment,enum=record_stock_movement,enum=clarification"`
	Confidence    string          `json:"confidence" jsonschema_description:"Confidence score between 0.0 and 1.0"`
	Reasoning     string          `json:"reasoning"`
	Clarification string          `json:"clarification" jsonschema_description:"Question for the user when action is clarification"`
	Payment       *PaymentAction  `json:"payment,omitempty"`
	Movement      *MovementAction `json:"movement,omitempty"`
}

// PaymentAction proposes recording a payment against an invoice, referenced
// by its human-visible number.
type PaymentAction struct {
	InvoiceNumber string `json:"invoice_number"`
	Amount        string `json:"amount" jsonschema_description:"Exact decimal string, e.g. 1500.00"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date" jsonschema_description:"YYYY-MM-DD"`
	Notes         string `json:"notes"`
}

// MovementAction proposes a stock movement against an item, referenced by
// its item code.
type MovementAction struct {
	ItemCode     string `json:"item_code"`
	MovementType string `json:"movement_type" jsonschema:"enum=in,enum=out,enum=adjustment"`
	Quantity     string `json:"quantity" jsonschema_description:"Exact decimal string, e.g. 7"`
	ProjectCode  string `json:"project_code" jsonschema_description:"Project code when material is issued to a project, else empty"`
	Notes        string `json:"notes"`
}

// Normalize cleans up model output before validation: trims whitespace,
// uppercases reference codes, defaults missing payment dates to today.
func (p *ActionProposal) Normalize() {
	p.Action = ActionKind(strings.TrimSpace(strings.ToLower(string(p.Action))))
	p.Reasoning = strings.TrimSpace(p.Reasoning)
	p.Clarification = strings.TrimSpace(p.Clarification)

	if p.Payment != nil {
		p.Payment.InvoiceNumber = strings.ToUpper(strings.TrimSpace(p.Payment.InvoiceNumber))
		p.Payment.Amount = strings.TrimSpace(p.Payment.Amount)
		p.Payment.PaymentMethod = strings.TrimSpace(strings.ToLower(p.Payment.PaymentMethod))
		p.Payment.PaymentDate = strings.TrimSpace(p.Payment.PaymentDate)
		if p.Payment.PaymentDate == "" || strings.EqualFold(p.Payment.PaymentDate, "null") {
			p.Payment.PaymentDate = time.Now().Format("2006-01-02")
		}
	}
	if p.Movement != nil {
		p.Movement.ItemCode = strings.ToUpper(strings.TrimSpace(p.Movement.ItemCode))
		p.Movement.MovementType = strings.TrimSpace(strings.ToLower(p.Movement.MovementType))
		p.Movement.Quantity = strings.TrimSpace(p.Movement.Quantity)
		p.Movement.ProjectCode = strings.ToUpper(strings.TrimSpace(p.Movement.ProjectCode))
	}
}

// Validate enforces the structural rules on a normalized proposal. It does
// not touch the database; existence checks happen when the action executes.
func (p *ActionProposal) Validate() error {
	switch p.Action {
	case ActionClarification:
		if p.Clarification == "" {
			return validationf("clarification proposal must carry a question")
		}
		return nil

	case ActionRecordPayment:
		if p.Payment == nil {
			return validationf("record_payment proposal is missing the payment block")
		}
		if p.Payment.InvoiceNumber == "" {
			return validationf("payment proposal must name an invoice number")
		}
		amount, err := decimal.NewFromString(p.Payment.Amount)
		if err != nil {
			return validationf("invalid payment amount %q", p.Payment.Amount)
		}
		if !amount.IsPositive() {
			return validationf("payment amount must be > 0, got %s", amount)
		}
		if _, err := time.Parse("2006-01-02", p.Payment.PaymentDate); err != nil {
			return validationf("invalid payment date %q", p.Payment.PaymentDate)
		}
		if p.Payment.PaymentMethod == "" {
			return validationf("payment proposal must name a payment method")
		}
		return nil

	case ActionRecordMovement:
		if p.Movement == nil {
			return validationf("record_stock_movement proposal is missing the movement block")
		}
		if p.Movement.ItemCode == "" {
			return validationf("movement proposal must name an item code")
		}
		switch MovementType(p.Movement.MovementType) {
		case MovementIn, MovementOut, MovementAdjustment:
		default:
			return validationf("unknown movement type %q", p.Movement.MovementType)
		}
		quantity, err := decimal.NewFromString(p.Movement.Quantity)
		if err != nil {
			return validationf("invalid movement quantity %q", p.Movement.Quantity)
		}
		if !quantity.IsPositive() {
			return validationf("movement quantity must be > 0, got %s", quantity)
		}
		return nil

	default:
		return validationf("unknown proposal action %q", p.Action)
	}
}

// Describe renders a one-line human summary for confirmation prompts.
func (p *ActionProposal) Describe() string {
	switch p.Action {
	case ActionRecordPayment:
		return fmt.Sprintf("record payment of %s via %s against invoice %s",
			p.Payment.Amount, p.Payment.PaymentMethod, p.Payment.InvoiceNumber)
	case ActionRecordMovement:
		if p.Movement.ProjectCode != "" {
			return fmt.Sprintf("record %s movement of %s for item %s (project %s)",
				p.Movement.MovementType, p.Movement.Quantity, p.Movement.ItemCode, p.Movement.ProjectCode)
		}
		return fmt.Sprintf("record %s movement of %s for item %s",
			p.Movement.MovementType, p.Movement.Quantity, p.Movement.ItemCode)
	case ActionClarification:
		return p.Clarification
	default:
		return string(p.Action)
	}
}
