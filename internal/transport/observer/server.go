// Package observer serves the monitoring dashboard: a bootstrap snapshot
// over plain HTTP and a live event feed over websocket. Both endpoints are
// loopback-only; the dashboard is expected to sit next to the coordinator.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"hivemind.ai/internal/bus"
	"hivemind.ai/internal/protocol"
	"hivemind.ai/internal/swarm"
)

type Server struct {
	swarm *swarm.Swarm
	bus   *bus.Bus
	log   *log.Logger

	upgrader websocket.Upgrader
}

type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Topics          []string `json:"topics,omitempty"`
}

type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	Status          swarm.Status `json:"status"`
	Config          configView   `json:"config"`
}

type configView struct {
	MaxBots             int     `json:"max_bots"`
	TerritoryCellSize   float64 `json:"territory_cell_size"`
	HeartbeatIntervalMs int64   `json:"heartbeat_interval_ms"`
	FailoverTimeoutMs   int64   `json:"failover_timeout_ms"`
	PathCollisionRadius float64 `json:"path_collision_radius"`
	TaskQueueCap        int     `json:"task_queue_cap"`
	ThreatAlertRadius   float64 `json:"threat_alert_radius"`
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

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st, err := s.swarm.Status(ctx)
		if err != nil {
			http.Error(rw, "coordinator busy", http.StatusServiceUnavailable)
			return
		}

		cfg := s.swarm.Config()
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Status:          st,
			Config: configView{
				MaxBots:             cfg.MaxBots,
				TerritoryCellSize:   cfg.TerritoryCellSize,
				HeartbeatIntervalMs: cfg.HeartbeatInterval.Milliseconds(),
				FailoverTimeoutMs:   cfg.FailoverTimeout.Milliseconds(),
				PathCollisionRadius: cfg.PathCollisionRadius,
				TaskQueueCap:        cfg.TaskQueueCap,
				ThreatAlertRadius:   cfg.ThreatAlertRadius,
			},
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		feed := s.bus.Subscribe(4096, sub.Topics...)
		defer feed.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case env, ok := <-feed.C:
					if !ok {
						return
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

		// Reader loop: keep the socket open, ignore everything but close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
