package guard

const (
	// maxPeriod is the longest attempt cycle Detect looks for.
	maxPeriod = 3

	// minRun is how many trailing attempts a periodic sequence must cover
	// before it counts as a loop.
	minRun = 6
)

// Detect reports whether the latest attempts form a repeating loop.
//
// A loop is a periodic fingerprint sequence at the tail of the history:
// the same attempt, or the same short cycle of attempts (period up to 3),
// repeating back-to-back across at least 6 attempts. A subscriber
// re-firing its own mutation every tick shows up as period 1; two
// subscribers re-firing each other alternate with period 2.
//
// Detect is a pure function of the supplied history. The guard owns the
// buffer and records into it; Detect never touches guard state. When
// several periods match, the smallest is returned.
func Detect(history []Attempt) (period int, ok bool) {
	if len(history) < minRun {
		return 0, false
	}
	for p := 1; p <= maxPeriod; p++ {
		if periodicSuffix(history, p) >= minRun {
			return p, true
		}
	}
	return 0, false
}

// periodicSuffix returns the length of the longest suffix of history whose
// loop keys repeat with the given period. A history no longer than the
// period is trivially periodic.
func periodicSuffix(history []Attempt, period int) int {
	n := len(history)
	if n <= period {
		return n
	}
	matches := 0
	for i := n - 1 - period; i >= 0; i-- {
		if history[i].loopKey() != history[i+period].loopKey() {
			break
		}
		matches++
	}
	return matches + period
}
