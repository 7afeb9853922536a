package swarm

import (
	"testing"

	"hivemind.ai/internal/protocol"
)

func TestElection_FirstBotBecomesMaster(t *testing.T) {
	s, sink, _ := newTestSwarm(t, Config{})
	register(t, s, "a", protocol.Vec3{})
	if s.Master() != "a" {
		t.Fatalf("master=%q want a", s.Master())
	}
	if !s.bots["a"].IsMaster {
		t.Fatalf("IsMaster flag not set")
	}
	if got := sink.byTopic(protocol.TopicMasterElected); len(got) != 1 {
		t.Fatalf("master.elected events=%d want 1", len(got))
	}
}

func TestElection_TieResolvesToEarliestRegistered(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	register(t, s, "a", protocol.Vec3{})
	register(t, s, "b", protocol.Vec3{})
	// Both score 100.0; the incumbent candidate survives a tie.
	s.electMaster()
	if s.Master() != "a" {
		t.Fatalf("master=%q want a on tie", s.Master())
	}
}

func TestElection_HigherScoreDisplaces(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	register(t, s, "a", protocol.Vec3{})
	b := register(t, s, "b", protocol.Vec3{})

	// b: 1.1*100 + 5 = 115 > a's 100.
	b.Perf.Efficiency = 1.1
	b.Perf.TasksCompleted = 5
	s.electMaster()
	if s.Master() != "b" {
		t.Fatalf("master=%q want b", s.Master())
	}
	if s.bots["a"].IsMaster {
		t.Fatalf("previous master flag not cleared")
	}
	if want := 115.0; electionScore(b) != want {
		t.Fatalf("score=%v want=%v", electionScore(b), want)
	}
}

func TestElection_MasterUnregisterTriggersReelection(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	register(t, s, "a", protocol.Vec3{})
	register(t, s, "b", protocol.Vec3{})
	if s.Master() != "a" {
		t.Fatalf("master=%q want a", s.Master())
	}
	s.handleUnregister("a")
	if s.Master() != "b" {
		t.Fatalf("master=%q want b after a left", s.Master())
	}
	s.handleUnregister("b")
	if s.Master() != "" {
		t.Fatalf("master=%q want empty with no bots", s.Master())
	}
}
