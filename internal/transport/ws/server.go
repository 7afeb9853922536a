package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hivemind.ai/internal/bus"
	"hivemind.ai/internal/protocol"
	"hivemind.ai/internal/swarm"
)

// Server is the agent-facing websocket endpoint. Each connection speaks
// envelopes: the first frame must be bot.register; after that, inbound
// topics flow into the coordinator and outbound events flow back, with
// bot-directed events (task.assigned, threat.alert) filtered to their
// addressee.
type Server struct {
	swarm *swarm.Swarm
	bus   *bus.Bus
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(s *swarm.Swarm, b *bus.Bus, logger *log.Logger) *Server {
	return &Server{
		swarm: s,
		bus:   b,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		botID := s.handshake(conn)
		if botID == "" {
			return
		}

		sub := s.bus.Subscribe(256)
		defer sub.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case env, ok := <-sub.C:
					if !ok {
						return
					}
					if target, ok := protocol.BotTarget(env); ok && target != botID {
						continue
					}
					b, err := json.Marshal(env)
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			env, err := protocol.DecodeEnvelope(msg)
			if err != nil {
				continue
			}
			if env.ProtocolVersion != protocol.Version {
				continue
			}
			if !protocol.IsInbound(env.Topic) {
				continue
			}
			s.swarm.Inbox() <- env
		}
	}
}

// handshake requires the first frame to be a valid bot.register envelope
// and forwards it. Liveness after that is the bot's heartbeat problem: a
// dropped socket does not unregister; the failover monitor reclaims bots
// that never come back.
func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil || env.Topic != protocol.TopicBotRegister || env.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected bot.register"),
			time.Now().Add(time.Second))
		return ""
	}
	var reg protocol.RegisterMsg
	if err := json.Unmarshal(env.Data, &reg); err != nil || reg.ID == "" {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest),
			time.Now().Add(time.Second))
		return ""
	}
	s.swarm.Inbox() <- env
	return reg.ID
}
