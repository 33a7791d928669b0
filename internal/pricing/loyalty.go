package pricing

// DefaultLoyaltyRate is the spend per point used when a tenant has not configured one.
var DefaultLoyaltyRate = Units(10)

// TenantConfig carries the per-tenant settings that affect pricing.
type TenantConfig struct {
	TaxRate        Percent
	LoyaltyEnabled bool
	// LoyaltyRate is the amount spent per point earned.
	LoyaltyRate Money
}

// EffectiveLoyaltyRate returns the configured rate or DefaultLoyaltyRate.
func (c TenantConfig) EffectiveLoyaltyRate() Money {
	if c.LoyaltyRate <= 0 {
		return DefaultLoyaltyRate
	}
	return c.LoyaltyRate
}

// EstimatePoints returns the loyalty points a purchase of grandTotal would earn.
// The figure is advisory; the order service awards points authoritatively.
func EstimatePoints(grandTotal Money, cfg *TenantConfig) int64 {
	if cfg == nil || !cfg.LoyaltyEnabled || grandTotal <= 0 {
		return 0
	}
	return int64(grandTotal) / int64(cfg.EffectiveLoyaltyRate())
}
