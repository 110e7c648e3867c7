package timeparse

// NormalizeDurationMinutes interprets a raw catalog duration value whose unit
// was never pinned down upstream. The bands are heuristic but intentional:
// values in 1-240 read naturally as minutes, anything else up to 24 reads as
// hours, and larger values fall back to minutes.
func NormalizeDurationMinutes(v int) int {
	switch {
	case v >= 1 && v <= 240:
		return v
	case v > 0 && v <= 24:
		return v * 60
	case v > 0:
		return v
	default:
		return 30
	}
}
