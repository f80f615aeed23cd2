package core

import "github.com/shopspring/decimal"

// DeriveStockStatus maps an on-hand quantity to a status. Total over every
// (quantity, minimumStock) combination:
//
//	quantity ≤ 0             → out_of_stock
//	quantity ≤ minimumStock  → low_stock
//	otherwise                → available
func DeriveStockStatus(quantity, minimumStock decimal.Decimal) StockStatus {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return StockOut
	case quantity.LessThanOrEqual(minimumStock):
		return StockLow
	default:
		return StockAvailable
	}
}

// movementDelta returns the signed on-hand change a movement applies when
// created. in and adjustment add stock; out removes it. Deleting a movement
// applies the negation of this delta.
func movementDelta(movementType MovementType, quantity decimal.Decimal) (decimal.Decimal, error) {
	switch movementType {
	case MovementIn, MovementAdjustment:
		return quantity, nil
	case MovementOut:
		return quantity.Neg(), nil
	default:
		return decimal.Zero, validationf("unknown movement type %q", movementType)
	}
}

// materialCost is the project cost attributed to an out movement.
func materialCost(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}
