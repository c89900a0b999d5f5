package models

// InsightLevel orders insights by severity.
type InsightLevel string

const (
	LevelHigh    InsightLevel = "high"
	LevelWarning InsightLevel = "warning"
	LevelStable  InsightLevel = "stable"
)

// LevelRank returns the sort rank of a level (lower sorts first).
func LevelRank(l InsightLevel) int {
	switch l {
	case LevelHigh:
		return 0
	case LevelWarning:
		return 1
	case LevelStable:
		return 2
	default:
		return 3
	}
}

// InsightRecord is an explained observation derived from a snapshot and its
// behavior tags. Why always cites at least one concrete value; a candidate
// without evidence is never emitted.
type InsightRecord struct {
	Level       InsightLevel `json:"level"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Impact      string       `json:"impact"`
	Why         []string     `json:"why"`
	// Magnitude of the triggering metric, used for intra-level ordering.
	Magnitude float64 `json:"-"`
}
