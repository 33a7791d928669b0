package pricing

import "testing"

func TestEstimatePoints(t *testing.T) {
	cases := []struct {
		name  string
		total Money
		cfg   *TenantConfig
		want  int64
	}{
		{name: "disabled", total: Units(1000), cfg: &TenantConfig{LoyaltyEnabled: false, LoyaltyRate: Units(1)}, want: 0},
		{name: "nil config", total: Units(1000), cfg: nil, want: 0},
		{name: "default rate", total: 14175, cfg: &TenantConfig{LoyaltyEnabled: true}, want: 14},
		{name: "explicit rate", total: 14175, cfg: &TenantConfig{LoyaltyEnabled: true, LoyaltyRate: Units(10)}, want: 14},
		{name: "non-positive rate falls back", total: Units(95), cfg: &TenantConfig{LoyaltyEnabled: true, LoyaltyRate: -5}, want: 9},
		{name: "fractional rate", total: Units(10), cfg: &TenantConfig{LoyaltyEnabled: true, LoyaltyRate: 250}, want: 4},
		{name: "zero total", total: 0, cfg: &TenantConfig{LoyaltyEnabled: true}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimatePoints(tc.total, tc.cfg); got != tc.want {
				t.Fatalf("expected %d points, got %d", tc.want, got)
			}
		})
	}
}
