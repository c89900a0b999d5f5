package repository

// Window bounds for profile computations, mirroring the dashboard contract.
const (
	MinWindowDays     = 7
	MaxWindowDays     = 365
	DefaultWindowDays = 90
)

// IsValidWindowDays returns true if d is an accepted window length.
func IsValidWindowDays(d int) bool {
	return d >= MinWindowDays && d <= MaxWindowDays
}

// NormalizeWindowDays converts a raw value to a valid window (or default).
func NormalizeWindowDays(d int) int {
	if IsValidWindowDays(d) {
		return d
	}
	return DefaultWindowDays
}
