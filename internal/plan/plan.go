package plan

// Tier identifies a tenant's subscription plan.
type Tier string

const (
	Free Tier = "FREE"
	Pro  Tier = "PRO"
)

// MaxEventsPerMonth returns the monthly ingestion cap for the tier.
// Unknown tiers fall back to the FREE limit.
func (t Tier) MaxEventsPerMonth() int64 {
	switch t {
	case Pro:
		return 1000
	default:
		return 100
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == Free || t == Pro
}
