package swarm

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hivemind.ai/internal/protocol"
)

// Severity is an ordinal danger scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

func (s Severity) Rank() int { return severityRank[s] }

type Threat struct {
	Key        string
	Type       string
	Location   protocol.Vec3
	Severity   Severity
	DetectedBy string
	DetectedAt time.Time
	Active     bool

	clearedAt time.Time
}

func (t *Threat) wireInfo() protocol.ThreatInfo {
	return protocol.ThreatInfo{
		Key:        t.Key,
		Type:       t.Type,
		Location:   t.Location,
		Severity:   string(t.Severity),
		DetectedBy: t.DetectedBy,
		Active:     t.Active,
	}
}

type threatBoard struct {
	cap     int
	entries *boundedMap[*Threat]
}

func newThreatBoard(cap int) *threatBoard {
	return &threatBoard{cap: cap, entries: newBoundedMap[*Threat]()}
}

func threatKey(loc protocol.Vec3) string {
	x, y, z := truncate(loc)
	return fmt.Sprintf("%d,%d,%d", x, y, z)
}

func (b *threatBoard) len() int { return b.entries.len() }

func (b *threatBoard) get(key string) (*Threat, bool) { return b.entries.get(key) }

// insert dedups by key; overflow evicts the oldest entry outright.
func (b *threatBoard) insert(t *Threat) bool {
	if _, ok := b.entries.get(t.Key); ok {
		return false
	}
	b.entries.put(t.Key, t)
	if b.entries.len() > b.cap {
		b.entries.evictOldest(nil)
	}
	return true
}

func (b *threatBoard) clear(key string, now time.Time) (*Threat, bool) {
	t, ok := b.entries.get(key)
	if !ok || !t.Active {
		return nil, false
	}
	t.Active = false
	t.clearedAt = now
	return t, true
}

// sweep physically removes threats whose post-clear grace period elapsed.
func (b *threatBoard) sweep(now time.Time, grace time.Duration) int {
	var expired []string
	b.entries.each(func(key string, t *Threat) bool {
		if !t.Active && now.Sub(t.clearedAt) > grace {
			expired = append(expired, key)
		}
		return true
	})
	for _, key := range expired {
		b.entries.remove(key)
	}
	return len(expired)
}

// nearby returns active threats within radius, closest first.
func (b *threatBoard) nearby(pos protocol.Vec3, radius float64) []*Threat {
	type hit struct {
		t *Threat
		d float64
	}
	var hits []hit
	b.entries.each(func(_ string, t *Threat) bool {
		if !t.Active {
			return true
		}
		if d := distance(pos, t.Location); d <= radius {
			hits = append(hits, hit{t, d})
		}
		return true
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]*Threat, len(hits))
	for i, h := range hits {
		out[i] = h.t
	}
	return out
}

// ---- coordinator handlers ----

// handleThreatDetected records a new threat and alerts every other bot
// within the alert radius with its distance to the danger.
func (s *Swarm) handleThreatDetected(m protocol.ThreatDetectedMsg) bool {
	sev, err := ParseSeverity(m.Severity)
	if err != nil {
		s.logf("threat.detected: %v", err)
		return false
	}
	t := &Threat{
		Key:        threatKey(m.Location),
		Type:       m.Type,
		Location:   m.Location,
		Severity:   sev,
		DetectedBy: m.BotID,
		DetectedAt: s.now(),
		Active:     true,
	}
	if !s.threats.insert(t) {
		return false
	}

	s.emit(protocol.TopicThreatDetected, t.wireInfo())
	for _, id := range s.order {
		b := s.bots[id]
		if b == nil || b.ID == m.BotID {
			continue
		}
		d := distance(b.Pos, t.Location)
		if d > s.cfg.ThreatAlertRadius {
			continue
		}
		s.emit(protocol.TopicThreatAlert, protocol.ThreatAlertMsg{
			TargetBotID: b.ID,
			Threat:      t.wireInfo(),
			Distance:    d,
		})
	}
	return true
}

func (s *Swarm) handleThreatCleared(key, botID string) bool {
	if _, ok := s.threats.clear(key, s.now()); !ok {
		s.logf("threat.cleared %s: %s", key, protocol.ErrUnknownKey)
		return false
	}
	s.emit(protocol.TopicThreatCleared, protocol.ThreatClearedEvent{Key: key, BotID: botID})
	return true
}
