package domain

// Score is the transient result of a single classifier call. A Score is
// either available (OK true, Value in [0,1]) or unavailable because the
// oracle could not be reached or returned garbage. Scores are never
// persisted.
type Score struct {
	Value float64
	OK    bool
}

// ScoreOf returns an available score, clamped to [0,1].
func ScoreOf(value float64) Score {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return Score{Value: value, OK: true}
}

// ScoreUnavailable returns the sentinel for an oracle that could not answer.
func ScoreUnavailable() Score {
	return Score{}
}

// OrZero maps an unavailable score to 0.0. This is the single place where
// the fail-open policy (infra failure contributes nothing to a gate) is
// applied; callers that want fail-closed behavior must branch on OK
// themselves before calling it.
func (s Score) OrZero() float64 {
	if !s.OK {
		return 0
	}
	return s.Value
}
