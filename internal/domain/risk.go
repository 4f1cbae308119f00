package domain

// RiskLevel grades how sensitive an access decision or audit event is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether the level is at or above the given threshold.
// Unknown levels rank below low.
func (r RiskLevel) AtLeast(threshold RiskLevel) bool {
	return riskOrder[r] >= riskOrder[threshold]
}
