package swarm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hivemind.ai/internal/protocol"
)

// captureSink records every emitted event for assertions.
type captureSink struct {
	events []EventRecord
}

func (c *captureSink) WriteEvent(rec EventRecord) error {
	c.events = append(c.events, rec)
	return nil
}

func (c *captureSink) byTopic(topic string) []EventRecord {
	var out []EventRecord
	for _, e := range c.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// newTestSwarm builds a coordinator with a captured event stream and a
// manually advanced clock.
func newTestSwarm(t *testing.T, cfg Config) (*Swarm, *captureSink, *time.Time) {
	t.Helper()
	s := New(cfg, nil, nil)
	sink := &captureSink{}
	s.AddEventSink(sink)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &now
	s.now = func() time.Time { return *clock }
	return s, sink, clock
}

func register(t *testing.T, s *Swarm, id string, pos protocol.Vec3, caps ...string) *Bot {
	t.Helper()
	if !s.handleRegister(protocol.RegisterMsg{ID: id, Position: pos, Capabilities: caps}) {
		t.Fatalf("register %s failed", id)
	}
	return s.bots[id]
}

func TestSwarm_RunDispatchAndStatus(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	s.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	env, err := protocol.Encode(protocol.TopicBotRegister, protocol.RegisterMsg{
		ID:       "alpha",
		Position: protocol.Vec3{X: 10, Y: 64, Z: 10},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s.Inbox() <- env

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := s.Status(ctx)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if st.Bots == 1 {
			if st.MasterID != "alpha" {
				t.Fatalf("master=%q want alpha", st.MasterID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bot never registered: %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestSwarm_DispatchDropsMalformedData(t *testing.T) {
	s, sink, _ := newTestSwarm(t, Config{})
	s.dispatch(protocol.Envelope{Topic: protocol.TopicBotRegister, Data: json.RawMessage(`{"id":`)})
	if len(s.bots) != 0 {
		t.Fatalf("malformed register mutated registry")
	}
	if len(sink.events) != 0 {
		t.Fatalf("malformed register emitted %d events", len(sink.events))
	}
}

func TestSwarm_SnapshotCounts(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	register(t, s, "a", protocol.Vec3{X: 50, Y: 64, Z: 50})
	s.handleSubmit(protocol.TaskSubmitMsg{Description: "dig", Priority: PriorityNormal, RequiredRole: string(RoleMiner)})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "iron_ore", Quantity: 4, Location: protocol.Vec3{X: 1, Y: 2, Z: 3}})

	st := s.snapshot()
	if st.Bots != 1 || st.QueueLen != 1 || st.Resources != 1 || st.Territories != 1 {
		t.Fatalf("snapshot mismatch: %+v", st)
	}
}
