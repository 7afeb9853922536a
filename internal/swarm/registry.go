package swarm

import (
	"sort"
	"time"

	"hivemind.ai/internal/protocol"
)

type BotStatus string

const (
	StatusIdle BotStatus = "idle"
	StatusBusy BotStatus = "busy"
)

type Performance struct {
	TasksCompleted int
	Efficiency     float64 // clamped to [0.5, 2.0]
	Uptime         time.Time
	LastActive     time.Time
}

type Bot struct {
	ID           string
	Pos          protocol.Vec3
	Capabilities map[string]bool
	Role         Role
	Territory    *Territory
	Status       BotStatus
	CurrentTask  *Task
	Perf         Performance
	Health       int
	IsMaster     bool

	lastHeartbeat time.Time
}

func (b *Bot) capList() []string {
	out := make([]string, 0, len(b.Capabilities))
	for c := range b.Capabilities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// handleRegister admits a bot into the registry. Returns false (no
// mutation) when the fleet is at capacity, the id is empty, or the id is
// already registered.
func (s *Swarm) handleRegister(m protocol.RegisterMsg) bool {
	if m.ID == "" {
		s.logf("register: %s", protocol.ErrBadRequest)
		return false
	}
	if s.bots[m.ID] != nil {
		s.logf("register %s: %s", m.ID, protocol.ErrDuplicateBot)
		return false
	}
	if len(s.bots) >= s.cfg.MaxBots {
		s.logf("register %s: %s (%d bots)", m.ID, protocol.ErrAtCapacity, len(s.bots))
		return false
	}

	caps := make(map[string]bool, len(m.Capabilities))
	for _, c := range m.Capabilities {
		caps[c] = true
	}

	var role Role
	if m.Role != "" {
		r, err := ParseRole(m.Role)
		if err != nil {
			s.logf("register %s: %v", m.ID, err)
			return false
		}
		role = r
	} else {
		role = s.assignRole(caps)
	}

	now := s.now()
	b := &Bot{
		ID:           m.ID,
		Pos:          m.Position,
		Capabilities: caps,
		Role:         role,
		Territory:    s.territoryFor(m.Position),
		Status:       StatusIdle,
		Perf: Performance{
			Efficiency: 1.0,
			Uptime:     now,
			LastActive: now,
		},
		Health:        20,
		lastHeartbeat: now,
	}
	s.bots[b.ID] = b
	s.order = append(s.order, b.ID)

	s.emit(protocol.TopicBotRegistered, protocol.BotRegisteredMsg{
		ID:        b.ID,
		Role:      string(b.Role),
		Territory: b.Territory.ID,
		Position:  b.Pos,
		Caps:      b.capList(),
	})

	if s.masterID == "" {
		s.electMaster()
	}
	return true
}

// handleUnregister removes a bot voluntarily: its in-flight task goes back
// on the queue at its original priority and its path reservation is freed.
func (s *Swarm) handleUnregister(id string) bool {
	b := s.bots[id]
	if b == nil {
		s.logf("unregister %s: %s", id, protocol.ErrUnknownBot)
		return false
	}
	if t := b.CurrentTask; t != nil {
		t.AssignedTo = ""
		b.CurrentTask = nil
		s.requeue(t)
	}
	s.handleRelease(id)
	s.removeBot(id)

	s.emit(protocol.TopicBotUnregistered, protocol.BotUnregisteredMsg{ID: id})

	if s.masterID == id {
		s.masterID = ""
		s.electMaster()
	}
	return true
}

func (s *Swarm) removeBot(id string) {
	delete(s.bots, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// handleHeartbeat refreshes liveness and applies the optional position,
// health and status updates carried on the heartbeat.
func (s *Swarm) handleHeartbeat(m protocol.HeartbeatMsg) bool {
	b := s.bots[m.ID]
	if b == nil {
		s.logf("heartbeat %s: %s", m.ID, protocol.ErrUnknownBot)
		return false
	}
	now := s.now()
	b.lastHeartbeat = now
	b.Perf.LastActive = now
	if m.Position != nil {
		b.Pos = *m.Position
		b.Territory = s.territoryFor(b.Pos)
	}
	if m.Health != nil {
		b.Health = *m.Health
	}
	switch BotStatus(m.Status) {
	case StatusIdle:
		// Only trust an idle report when the coordinator agrees the bot
		// has no task; otherwise the assignment binding stays.
		if b.CurrentTask == nil {
			b.Status = StatusIdle
		}
	case StatusBusy:
		b.Status = StatusBusy
	}
	return true
}
