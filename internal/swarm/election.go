package swarm

import "hivemind.ai/internal/protocol"

// electionScore ranks bots for mastership.
func electionScore(b *Bot) float64 {
	return b.Perf.Efficiency*100 + float64(b.Perf.TasksCompleted)
}

// electMaster designates exactly one master, clearing the previous flag
// first. Candidates are walked in registration order, and only a strictly
// higher score displaces the incumbent candidate, so ties resolve to the
// earliest-registered bot. An empty registry leaves the master unset.
func (s *Swarm) electMaster() {
	if prev := s.bots[s.masterID]; prev != nil {
		prev.IsMaster = false
	}
	s.masterID = ""

	var best *Bot
	var bestScore float64
	for _, id := range s.order {
		b := s.bots[id]
		if b == nil {
			continue
		}
		if sc := electionScore(b); best == nil || sc > bestScore {
			best = b
			bestScore = sc
		}
	}
	if best == nil {
		return
	}
	best.IsMaster = true
	s.masterID = best.ID
	s.emit(protocol.TopicMasterElected, protocol.MasterElectedMsg{ID: best.ID, Score: bestScore})
}

// Master returns the current master's id, or "" when the registry is empty.
func (s *Swarm) Master() string { return s.masterID }
