package core_test

import (
	"testing"

	"contractor-erp/internal/core"
)

func TestDeriveStockStatus(t *testing.T) {
	tests := []struct {
		name    string
		qty     string
		minimum string
		want    core.StockStatus
	}{
		{"above minimum", "10", "5", core.StockAvailable},
		{"just above minimum", "5.01", "5", core.StockAvailable},
		{"at minimum", "5", "5", core.StockLow},
		{"below minimum", "3", "5", core.StockLow},
		{"zero", "0", "5", core.StockOut},
		{"negative after reversal", "-2", "5", core.StockOut},
		// quantity <= 0 wins over quantity <= minimum
		{"zero with zero minimum", "0", "0", core.StockOut},
		{"positive with zero minimum", "1", "0", core.StockAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.DeriveStockStatus(d(tt.qty), d(tt.minimum))
			if got != tt.want {
				t.Errorf("DeriveStockStatus(%s, %s) = %s, want %s", tt.qty, tt.minimum, got, tt.want)
			}
		})
	}
}
