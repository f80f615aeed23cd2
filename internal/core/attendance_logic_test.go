package core_test

import (
	"testing"
	"time"

	"contractor-erp/internal/core"
)

func TestComputeWorkHours(t *testing.T) {
	at := func(hour, min int) *time.Time {
		v := time.Date(2026, 8, 3, hour, min, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name      string
		clockIn   *time.Time
		clockOut  *time.Time
		want      string
		expectErr bool
	}{
		{"full day", at(8, 0), at(17, 0), "9", false},
		{"half hour granularity", at(8, 30), at(12, 45), "4.25", false},
		{"missing clock out", at(8, 0), nil, "0", false},
		{"missing both", nil, nil, "0", false},
		{"clock out before clock in", at(17, 0), at(8, 0), "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.ComputeWorkHours(tt.clockIn, tt.clockOut)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("ComputeWorkHours = %s, want %s", got, tt.want)
			}
		})
	}
}
