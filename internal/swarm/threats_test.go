package swarm

import (
	"encoding/json"
	"testing"
	"time"

	"hivemind.ai/internal/protocol"
)

func TestThreatKey_CoordinatesOnly(t *testing.T) {
	if got := threatKey(protocol.Vec3{X: 118.9, Y: 12.1, Z: -38.5}); got != "118,12,-39" {
		t.Fatalf("key=%q want 118,12,-39", got)
	}
}

func TestThreatDetected_AlertsBotsWithinRadiusExceptDetector(t *testing.T) {
	s, sink, _ := newTestSwarm(t, Config{ThreatAlertRadius: 100})
	register(t, s, "scout", protocol.Vec3{X: 0, Y: 0, Z: 0})
	register(t, s, "near", protocol.Vec3{X: 50, Y: 0, Z: 0})
	register(t, s, "far", protocol.Vec3{X: 300, Y: 0, Z: 0})

	ok := s.handleThreatDetected(protocol.ThreatDetectedMsg{
		BotID:    "scout",
		Type:     "creeper",
		Location: protocol.Vec3{X: 10, Y: 0, Z: 0},
		Severity: "high",
	})
	if !ok {
		t.Fatalf("detection rejected")
	}

	alerts := sink.byTopic(protocol.TopicThreatAlert)
	if len(alerts) != 1 {
		t.Fatalf("threat.alert events=%d want 1", len(alerts))
	}
	var m protocol.ThreatAlertMsg
	if err := json.Unmarshal(alerts[0].Data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.TargetBotID != "near" {
		t.Fatalf("target=%s want near", m.TargetBotID)
	}
	if m.Distance != 40 {
		t.Fatalf("distance=%v want 40", m.Distance)
	}
	if m.Threat.Severity != "high" || !m.Threat.Active {
		t.Fatalf("threat payload: %+v", m.Threat)
	}
}

func TestThreatDetected_DedupsByLocationAndRejectsUnknownSeverity(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	loc := protocol.Vec3{X: 5, Y: 0, Z: 5}
	if !s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "a", Type: "zombie", Location: loc, Severity: "low"}) {
		t.Fatalf("detection rejected")
	}
	if s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "b", Type: "zombie", Location: protocol.Vec3{X: 5.9, Y: 0.2, Z: 5.1}, Severity: "low"}) {
		t.Fatalf("same-block duplicate accepted")
	}
	if s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "a", Type: "zombie", Location: protocol.Vec3{X: 50}, Severity: "apocalyptic"}) {
		t.Fatalf("unknown severity accepted")
	}
	if s.threats.len() != 1 {
		t.Fatalf("board len=%d want 1", s.threats.len())
	}
}

func TestThreatCleared_GracePeriodThenSwept(t *testing.T) {
	s, sink, clock := newTestSwarm(t, Config{ThreatGracePeriod: 60 * time.Second})
	loc := protocol.Vec3{X: 5, Y: 0, Z: 5}
	s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "a", Type: "zombie", Location: loc, Severity: "medium"})
	key := threatKey(loc)

	if !s.handleThreatCleared(key, "guard") {
		t.Fatalf("clear rejected")
	}
	if s.handleThreatCleared(key, "guard") {
		t.Fatalf("second clear accepted")
	}
	if got := sink.byTopic(protocol.TopicThreatCleared); len(got) != 1 {
		t.Fatalf("threat.cleared events=%d want 1", len(got))
	}

	// Still on the board (inactive) within the grace period.
	if n := s.threats.sweep(clock.Add(59*time.Second), s.cfg.ThreatGracePeriod); n != 0 {
		t.Fatalf("swept=%d want 0 inside grace", n)
	}
	th, ok := s.threats.get(key)
	if !ok || th.Active {
		t.Fatalf("cleared threat state: ok=%v threat=%+v", ok, th)
	}

	if n := s.threats.sweep(clock.Add(61*time.Second), s.cfg.ThreatGracePeriod); n != 1 {
		t.Fatalf("swept=%d want 1 past grace", n)
	}
	if _, ok := s.threats.get(key); ok {
		t.Fatalf("threat survived sweep")
	}
}

func TestThreatBoard_NearbySortedActiveOnly(t *testing.T) {
	s, _, clock := newTestSwarm(t, Config{})
	mk := func(x float64, sev string) {
		s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "a", Type: "mob", Location: protocol.Vec3{X: x}, Severity: sev})
	}
	mk(30, "low")
	mk(10, "high")
	mk(500, "critical")
	mk(20, "medium")
	s.threats.clear(threatKey(protocol.Vec3{X: 20}), *clock)

	got := s.threats.nearby(protocol.Vec3{}, 100)
	if len(got) != 2 {
		t.Fatalf("nearby=%d want 2", len(got))
	}
	if got[0].Location.X != 10 || got[1].Location.X != 30 {
		t.Fatalf("order: [%v,%v] want [10,30]", got[0].Location.X, got[1].Location.X)
	}
}

func TestThreatBoard_OverflowEvictsOldest(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{ThreatCacheCap: 2})
	mk := func(x float64) {
		s.handleThreatDetected(protocol.ThreatDetectedMsg{BotID: "a", Type: "mob", Location: protocol.Vec3{X: x}, Severity: "low"})
	}
	mk(1)
	mk(2)
	mk(3)
	if s.threats.len() != 2 {
		t.Fatalf("board len=%d want 2", s.threats.len())
	}
	if _, ok := s.threats.get(threatKey(protocol.Vec3{X: 1})); ok {
		t.Fatalf("oldest threat not evicted")
	}
}

func TestSeverity_ParseAndRank(t *testing.T) {
	sev, err := ParseSeverity(" Critical ")
	if err != nil || sev != SeverityCritical {
		t.Fatalf("parse: %v %v", sev, err)
	}
	if SeverityLow.Rank() >= SeverityHigh.Rank() {
		t.Fatalf("rank ordering broken")
	}
	if _, err := ParseSeverity("meh"); err == nil {
		t.Fatalf("unknown severity parsed")
	}
}
