// Command bot is a demo swarm member: it registers, heartbeats, works any
// task it is assigned, and occasionally reports a resource find. Useful for
// exercising a coordinator by hand.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"hivemind.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "coordinator ws url")
		id    = flag.String("id", "bot-1", "bot id")
		caps  = flag.String("caps", "mining,combat", "comma-separated capabilities")
		hbMs  = flag.Int("heartbeat_ms", 5000, "heartbeat period")
		workS = flag.Int("work_s", 3, "seconds to pretend a task takes")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pos := protocol.Vec3{X: float64(rand.Intn(200) - 100), Y: 64, Z: float64(rand.Intn(200) - 100)}

	reg, err := protocol.Encode(protocol.TopicBotRegister, protocol.RegisterMsg{
		ID:           *id,
		Position:     pos,
		Capabilities: splitCaps(*caps),
	})
	if err != nil {
		logger.Fatalf("encode register: %v", err)
	}
	if err := conn.WriteJSON(reg); err != nil {
		logger.Fatalf("send register: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	send := make(chan protocol.Envelope, 32)
	go func() {
		hb := time.NewTicker(time.Duration(*hbMs) * time.Millisecond)
		defer hb.Stop()
		for {
			select {
			case <-stop:
				env, _ := protocol.Encode(protocol.TopicBotUnregister, protocol.UnregisterMsg{ID: *id})
				_ = conn.WriteJSON(env)
				_ = conn.Close()
				return
			case env := <-send:
				if err := conn.WriteJSON(env); err != nil {
					return
				}
			case <-hb.C:
				env, _ := protocol.Encode(protocol.TopicBotHeartbeat, protocol.HeartbeatMsg{
					ID:       *id,
					Position: &pos,
				})
				if err := conn.WriteJSON(env); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			continue
		}
		switch env.Topic {
		case protocol.TopicBotRegistered:
			var m protocol.BotRegisteredMsg
			if json.Unmarshal(env.Data, &m) == nil && m.ID == *id {
				logger.Printf("registered role=%s territory=%s", m.Role, m.Territory)
			}

		case protocol.TopicMasterElected:
			var m protocol.MasterElectedMsg
			if json.Unmarshal(env.Data, &m) == nil {
				logger.Printf("master=%s score=%.1f", m.ID, m.Score)
			}

		case protocol.TopicTaskAssigned:
			var m protocol.TaskAssignedMsg
			if json.Unmarshal(env.Data, &m) != nil || m.BotID != *id {
				continue
			}
			logger.Printf("working task=%s %q", m.TaskID, m.Task.Description)
			go workTask(send, *id, m, *workS)

		case protocol.TopicThreatAlert:
			var m protocol.ThreatAlertMsg
			if json.Unmarshal(env.Data, &m) == nil && m.TargetBotID == *id {
				logger.Printf("threat %s (%s) at %.1f blocks", m.Threat.Type, m.Threat.Severity, m.Distance)
			}
		}
	}
}

// workTask sleeps for the pretend duration, reports completion, and
// sometimes a nearby resource find.
func workTask(send chan<- protocol.Envelope, botID string, m protocol.TaskAssignedMsg, workS int) {
	time.Sleep(time.Duration(workS) * time.Second)

	done, err := protocol.Encode(protocol.TopicTaskComplete, protocol.TaskCompleteMsg{
		BotID:   botID,
		TaskID:  m.TaskID,
		Success: true,
	})
	if err == nil {
		send <- done
	}

	if m.Task.Location != nil && rand.Intn(3) == 0 {
		found, err := protocol.Encode(protocol.TopicResourceFound, protocol.ResourceFoundMsg{
			BotID:    botID,
			Type:     "iron_ore",
			Quantity: 1 + rand.Intn(8),
			Location: *m.Task.Location,
		})
		if err == nil {
			send <- found
		}
	}

	if m.Task.Location != nil && rand.Intn(5) == 0 {
		seen, err := protocol.Encode(protocol.TopicThreatDetected, protocol.ThreatDetectedMsg{
			BotID:    botID,
			Type:     "zombie",
			Location: protocol.Vec3{X: m.Task.Location.X + 10, Y: m.Task.Location.Y, Z: m.Task.Location.Z},
			Severity: "medium",
		})
		if err == nil {
			send <- seen
		}
	}
}

func splitCaps(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
