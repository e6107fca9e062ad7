package sim

// pullAllGroup tracks an in-flight all-or-nothing pull a Pool or Drain
// initiated: the amount queried from each connection and the offers
// collected back so far. A step drains all of a tick's events
// synchronously before returning, so the query events going out and every
// sibling's offer coming back happen within the same tick (spec.md §4.3).
type pullAllGroup struct {
	order     []string // connection IDs, in query order
	conns     map[string]*Connection
	requested map[string]float64
	offers    map[string]float64

	// total is this group's TotalRequired, stamped on every query event it
	// sends out. An offer quoting a different total did not come from this
	// group — most likely a straggler from a group this process abandoned
	// last tick — and recordOffer ignores it rather than folding it in.
	total float64
}

func newPullAllGroup(conns []*Connection) *pullAllGroup {
	g := &pullAllGroup{
		order:     make([]string, 0, len(conns)),
		conns:     make(map[string]*Connection, len(conns)),
		requested: make(map[string]float64, len(conns)),
		offers:    make(map[string]float64, len(conns)),
	}
	for _, c := range conns {
		g.order = append(g.order, c.ID)
		g.conns[c.ID] = c
		amount := c.normalizedFlowRate()
		g.requested[c.ID] = amount
		g.total += amount
	}
	return g
}

// recordOffer records one sibling's response to this group's query, keyed
// by connection ID and authenticated by the TotalRequired it echoes back.
// ready reports whether every queried connection has now answered;
// satisfied (meaningful only when ready) reports whether every one of them
// offered at least what was asked.
func (g *pullAllGroup) recordOffer(connID string, total, amount float64) (ready, satisfied bool) {
	if _, known := g.requested[connID]; !known || total != g.total {
		return false, false
	}
	g.offers[connID] = amount
	if len(g.offers) < len(g.requested) {
		return false, false
	}
	for id, want := range g.requested {
		if g.offers[id] < want {
			return true, false
		}
	}
	return true, true
}
