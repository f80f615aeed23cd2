package app

import "contractor-erp/internal/core"

// PaymentResult is returned by RecordPayment: the new payment plus the
// invoice it settled against, with its re-derived status.
type PaymentResult struct {
	Payment *core.Payment
	Invoice *core.Invoice
}

// MovementResult is returned by RecordStockMovement: the new movement plus
// the item with its updated quantity and status.
type MovementResult struct {
	Movement *core.StockMovement
	Item     *core.Inventory
}

// AIActionResult is returned by InterpretAction.
type AIActionResult struct {
	Proposal        *core.ActionProposal
	IsClarification bool
	Summary         string
}

// ExecuteResult is returned by ExecuteProposal.
type ExecuteResult struct {
	Payment  *PaymentResult
	Movement *MovementResult
}
