package trace

// Summary aggregates statistics from a SimulationTrace.
type Summary struct {
	TotalDeliveries  int
	TotalOverflows   int
	TotalCascades    int
	OverflowShortfall float64 // sum of (Attempted - Accepted) across all overflow records
	PayloadCounts    map[string]int // event payload kind -> delivery count
}

// Summarize computes aggregate statistics from a SimulationTrace. Safe
// for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *Summary {
	summary := &Summary{PayloadCounts: make(map[string]int)}
	if st == nil {
		return summary
	}

	summary.TotalDeliveries = len(st.Deliveries)
	for _, d := range st.Deliveries {
		summary.PayloadCounts[string(d.Event.Payload.Kind)]++
	}

	summary.TotalOverflows = len(st.Overflows)
	for _, o := range st.Overflows {
		summary.OverflowShortfall += o.Attempted - o.Accepted
	}

	summary.TotalCascades = len(st.Cascades)

	return summary
}
