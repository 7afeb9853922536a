package swarm

import (
	"time"

	"hivemind.ai/internal/protocol"
)

// checkHeartbeats declares every bot silent past the failover timeout dead
// and recovers whatever it held. Runs once per monitor tick; removal during
// iteration is safe because the loop walks a copy of the order slice.
func (s *Swarm) checkHeartbeats(now time.Time) {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	for _, id := range ids {
		b := s.bots[id]
		if b == nil {
			continue
		}
		if now.Sub(b.lastHeartbeat) > s.cfg.FailoverTimeout {
			s.failover(b, now)
		}
	}
}

// failover removes a dead bot: its task is requeued at HIGH priority, its
// path reservation released, its resource claims undone, and mastership
// re-elected if it held it. Idempotent per bot (the record is gone after).
func (s *Swarm) failover(b *Bot, now time.Time) {
	requeuedTask := ""
	if t := b.CurrentTask; t != nil {
		t.AssignedTo = ""
		b.CurrentTask = nil
		if t.Priority < PriorityHigh {
			t.Priority = PriorityHigh
		}
		s.requeue(t)
		requeuedTask = t.ID
	}
	s.handleRelease(b.ID)
	s.resources.unclaimAll(b.ID)
	s.removeBot(b.ID)

	s.logf("failover %s: silent for %s", b.ID, now.Sub(b.lastHeartbeat).Truncate(time.Millisecond))
	s.emit(protocol.TopicBotFailover, protocol.BotFailoverMsg{
		ID:           b.ID,
		RequeuedTask: requeuedTask,
		LastSeenMs:   b.lastHeartbeat.UnixMilli(),
	})

	if s.masterID == b.ID {
		s.masterID = ""
		s.electMaster()
	}
}
