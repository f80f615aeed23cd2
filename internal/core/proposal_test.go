package core_test

import (
	"strings"
	"testing"
	"time"

	"contractor-erp/internal/core"
)

func TestActionProposal_Normalize(t *testing.T) {
	p := core.ActionProposal{
		Action: " Record_Payment ",
		Payment: &core.PaymentAction{
			InvoiceNumber: "  inv2026-00003 ",
			Amount:        " 1500.00 ",
			PaymentMethod: " Bank_Transfer ",
			PaymentDate:   "",
		},
	}

	p.Normalize()

	if p.Action != core.ActionRecordPayment {
		t.Errorf("action = %q, want record_payment", p.Action)
	}
	if p.Payment.InvoiceNumber != "INV2026-00003" {
		t.Errorf("invoice number = %q, want INV2026-00003", p.Payment.InvoiceNumber)
	}
	if p.Payment.PaymentMethod != "bank_transfer" {
		t.Errorf("payment method = %q, want bank_transfer", p.Payment.PaymentMethod)
	}
	// blank payment date defaults to today
	if p.Payment.PaymentDate != time.Now().Format("2006-01-02") {
		t.Errorf("payment date = %q, want today", p.Payment.PaymentDate)
	}
}

func TestActionProposal_Validate(t *testing.T) {
	tests := []struct {
		name      string
		proposal  core.ActionProposal
		expectErr bool
	}{
		{
			name: "valid payment",
			proposal: core.ActionProposal{
				Action: core.ActionRecordPayment,
				Payment: &core.PaymentAction{
					InvoiceNumber: "INV2026-00001",
					Amount:        "400.00",
					PaymentMethod: "cash",
					PaymentDate:   "2026-08-01",
				},
			},
		},
		{
			name: "payment with zero amount",
			proposal: core.ActionProposal{
				Action: core.ActionRecordPayment,
				Payment: &core.PaymentAction{
					InvoiceNumber: "INV2026-00001",
					Amount:        "0.00",
					PaymentMethod: "cash",
					PaymentDate:   "2026-08-01",
				},
			},
			expectErr: true,
		},
		{
			name: "payment with malformed amount",
			proposal: core.ActionProposal{
				Action: core.ActionRecordPayment,
				Payment: &core.PaymentAction{
					InvoiceNumber: "INV2026-00001",
					Amount:        "about 400",
					PaymentMethod: "cash",
					PaymentDate:   "2026-08-01",
				},
			},
			expectErr: true,
		},
		{
			name: "payment missing block",
			proposal: core.ActionProposal{
				Action: core.ActionRecordPayment,
			},
			expectErr: true,
		},
		{
			name: "valid out movement with project",
			proposal: core.ActionProposal{
				Action: core.ActionRecordMovement,
				Movement: &core.MovementAction{
					ItemCode:     "ITM2026-00002",
					MovementType: "out",
					Quantity:     "7",
					ProjectCode:  "PRJ2026-00001",
				},
			},
		},
		{
			name: "movement with unknown type",
			proposal: core.ActionProposal{
				Action: core.ActionRecordMovement,
				Movement: &core.MovementAction{
					ItemCode:     "ITM2026-00002",
					MovementType: "transfer",
					Quantity:     "7",
				},
			},
			expectErr: true,
		},
		{
			name: "movement with negative quantity",
			proposal: core.ActionProposal{
				Action: core.ActionRecordMovement,
				Movement: &core.MovementAction{
					ItemCode:     "ITM2026-00002",
					MovementType: "in",
					Quantity:     "-3",
				},
			},
			expectErr: true,
		},
		{
			name: "clarification with question",
			proposal: core.ActionProposal{
				Action:        core.ActionClarification,
				Clarification: "Which invoice did you mean?",
			},
		},
		{
			name: "clarification without question",
			proposal: core.ActionProposal{
				Action: core.ActionClarification,
			},
			expectErr: true,
		},
		{
			name: "unknown action",
			proposal: core.ActionProposal{
				Action: "delete_everything",
			},
			expectErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proposal.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestActionProposal_Describe(t *testing.T) {
	p := core.ActionProposal{
		Action: core.ActionRecordMovement,
		Movement: &core.MovementAction{
			ItemCode:     "ITM2026-00002",
			MovementType: "out",
			Quantity:     "7",
			ProjectCode:  "PRJ2026-00001",
		},
	}
	got := p.Describe()
	for _, want := range []string{"out", "7", "ITM2026-00002", "PRJ2026-00001"} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe() = %q, missing %q", got, want)
		}
	}
}
