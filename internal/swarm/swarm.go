package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"hivemind.ai/internal/bus"
	"hivemind.ai/internal/protocol"
)

// Swarm is the single-threaded coordination authority for a fleet of bots.
// All tables must be accessed only from the coordinator loop goroutine;
// external callers talk to it through Inbox()/Status() or, in tests, by
// calling the handlers directly.
type Swarm struct {
	cfg Config
	log *log.Logger
	bus *bus.Bus

	bots        map[string]*Bot
	order       []string // registration order; election tie-break
	territories map[string]*Territory
	masterID    string

	queue     []*Task
	resources *resourceLedger
	mining    *miningNetwork
	threats   *threatBoard
	paths     map[string][]protocol.Vec3

	gathered    int
	nextTaskNum atomic.Uint64

	inbox  chan protocol.Envelope
	status chan statusReq
	stop   chan struct{}

	sinks []EventSink

	// now is swapped out in tests to drive heartbeat/expiry deterministically.
	now func() time.Time
}

// EventSink receives every outbound coordinator event (journal, index).
// Sinks must not block; the coordinator loop calls them inline.
type EventSink interface {
	WriteEvent(rec EventRecord) error
}

type EventRecord struct {
	At    time.Time       `json:"at"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type statusReq struct {
	resp chan Status
}

// Status is a read-only snapshot for the dashboard bootstrap.
type Status struct {
	Bots        int       `json:"bots"`
	MaxBots     int       `json:"max_bots"`
	MasterID    string    `json:"master_id,omitempty"`
	QueueLen    int       `json:"queue_len"`
	Territories int       `json:"territories"`
	Resources   int       `json:"resources"`
	Threats     int       `json:"threats"`
	Gathered    int       `json:"gathered"`
	At          time.Time `json:"at"`
}

func New(cfg Config, b *bus.Bus, logger *log.Logger) *Swarm {
	cfg.applyDefaults()
	return &Swarm{
		cfg:         cfg,
		log:         logger,
		bus:         b,
		bots:        map[string]*Bot{},
		territories: map[string]*Territory{},
		resources:   newResourceLedger(cfg.ResourceCacheCap),
		mining:      newMiningNetwork(cfg.MiningNetworkWindow, cfg.MiningDedupRadius),
		threats:     newThreatBoard(cfg.ThreatCacheCap),
		paths:       map[string][]protocol.Vec3{},
		inbox:       make(chan protocol.Envelope, 1024),
		status:      make(chan statusReq, 16),
		stop:        make(chan struct{}),
		now:         time.Now,
	}
}

func (s *Swarm) Config() Config { return s.cfg }

func (s *Swarm) Inbox() chan<- protocol.Envelope { return s.inbox }

func (s *Swarm) AddEventSink(sink EventSink) { s.sinks = append(s.sinks, sink) }

// Status is safe to call from any goroutine while Run is active.
func (s *Swarm) Status(ctx context.Context) (Status, error) {
	req := statusReq{resp: make(chan Status, 1)}
	select {
	case s.status <- req:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-req.resp:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (s *Swarm) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case env := <-s.inbox:
			s.dispatch(env)
		case req := <-s.status:
			req.resp <- s.snapshot()
		case <-ticker.C:
			now := s.now()
			s.checkHeartbeats(now)
			s.threats.sweep(now, s.cfg.ThreatGracePeriod)
		}
	}
}

func (s *Swarm) Stop() { close(s.stop) }

func (s *Swarm) dispatch(env protocol.Envelope) {
	decode := func(v any) bool {
		if err := json.Unmarshal(env.Data, v); err != nil {
			s.logf("drop %s: %v", env.Topic, err)
			return false
		}
		return true
	}

	switch env.Topic {
	case protocol.TopicBotRegister:
		var m protocol.RegisterMsg
		if decode(&m) {
			s.handleRegister(m)
		}
	case protocol.TopicBotUnregister:
		var m protocol.UnregisterMsg
		if decode(&m) {
			s.handleUnregister(m.ID)
		}
	case protocol.TopicBotHeartbeat:
		var m protocol.HeartbeatMsg
		if decode(&m) {
			s.handleHeartbeat(m)
		}
	case protocol.TopicTaskSubmit:
		var m protocol.TaskSubmitMsg
		if decode(&m) {
			s.handleSubmit(m)
		}
	case protocol.TopicTaskComplete:
		var m protocol.TaskCompleteMsg
		if decode(&m) {
			s.handleComplete(m.BotID, m.TaskID, m.Success)
		}
	case protocol.TopicTaskFailed:
		var m protocol.TaskFailedMsg
		if decode(&m) {
			s.handleTaskFailed(m.BotID, m.TaskID, m.Reason)
		}
	case protocol.TopicResourceFound:
		var m protocol.ResourceFoundMsg
		if decode(&m) {
			s.handleResourceFound(m)
		}
	case protocol.TopicResourceClaim:
		var m protocol.ResourceClaimMsg
		if decode(&m) {
			s.handleClaim(m.BotID, m.Key)
		}
	case protocol.TopicResourceDepleted:
		var m protocol.ResourceDepletedMsg
		if decode(&m) {
			s.handleDeplete(m.Key)
		}
	case protocol.TopicThreatDetected:
		var m protocol.ThreatDetectedMsg
		if decode(&m) {
			s.handleThreatDetected(m)
		}
	case protocol.TopicThreatCleared:
		var m protocol.ThreatClearedMsg
		if decode(&m) {
			s.handleThreatCleared(m.Key, m.BotID)
		}
	case protocol.TopicPathReserve:
		var m protocol.PathReserveMsg
		if decode(&m) {
			s.handleReserve(m.BotID, m.Waypoints)
		}
	case protocol.TopicPathRelease:
		var m protocol.PathReleaseMsg
		if decode(&m) {
			s.handleRelease(m.BotID)
		}
	default:
		s.logf("unknown topic %q", env.Topic)
	}
}

func (s *Swarm) snapshot() Status {
	return Status{
		Bots:        len(s.bots),
		MaxBots:     s.cfg.MaxBots,
		MasterID:    s.masterID,
		QueueLen:    len(s.queue),
		Territories: len(s.territories),
		Resources:   s.resources.len(),
		Threats:     s.threats.len(),
		Gathered:    s.gathered,
		At:          s.now(),
	}
}

// emit publishes an outbound event to the bus and every sink.
func (s *Swarm) emit(topic string, data any) {
	env, err := protocol.Encode(topic, data)
	if err != nil {
		s.logf("encode %s: %v", topic, err)
		return
	}
	if s.bus != nil {
		s.bus.Publish(env)
	}
	if len(s.sinks) == 0 {
		return
	}
	rec := EventRecord{At: s.now(), Topic: topic, Data: env.Data}
	for _, sink := range s.sinks {
		if err := sink.WriteEvent(rec); err != nil {
			s.logf("event sink: %v", err)
		}
	}
}

func (s *Swarm) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Swarm) newTaskID() string {
	return fmt.Sprintf("T%06d", s.nextTaskNum.Add(1))
}
