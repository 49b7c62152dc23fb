package service

import (
	"testing"
	"time"
)

func TestMultiplierForWeekend(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"wednesday", time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), 1},
		{"friday last minute", time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC), 1},
		{"saturday midnight", time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), 2},
		{"saturday noon", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), 2},
		{"sunday last minute", time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), 2},
		{"monday midnight", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MultiplierFor(tc.t); got != tc.want {
				t.Errorf("MultiplierFor(%v) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestIsWeekend(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if !IsWeekend(saturday) {
		t.Error("saturday should be weekend")
	}
	tuesday := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	if IsWeekend(tuesday) {
		t.Error("tuesday should not be weekend")
	}
}
