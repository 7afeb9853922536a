package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"hivemind.ai/internal/bus"
	"hivemind.ai/internal/persistence/indexdb"
	persistlog "hivemind.ai/internal/persistence/log"
	"hivemind.ai/internal/swarm"
	"hivemind.ai/internal/transport/observer"
	"hivemind.ai/internal/transport/ws"
	"hivemind.ai/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "", "path to swarm.yaml (default: ./configs/swarm.yaml if present)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event index")
		disableLog = flag.Bool("disable_journal", false, "disable the compressed event journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[coordinator] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		if _, err := os.Stat("./configs/swarm.yaml"); err == nil {
			tp = "./configs/swarm.yaml"
		}
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if !tune.Enabled {
		logger.Fatalf("coordination disabled in %s", tp)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	cfg := swarm.Config{
		MaxBots:             tune.MaxBots,
		TerritoryCellSize:   tune.TerritoryCellSize,
		HeartbeatInterval:   time.Duration(tune.HeartbeatIntervalMs) * time.Millisecond,
		FailoverTimeout:     time.Duration(tune.FailoverTimeoutMs) * time.Millisecond,
		PathCollisionRadius: tune.PathCollisionRadius,
		TaskQueueCap:        tune.TaskQueueCap,
		ResourceCacheCap:    tune.ResourceCacheCap,
		ThreatCacheCap:      tune.ThreatCacheCap,
		MiningNetworkWindow: tune.MiningNetworkWindow,
		MiningDedupRadius:   tune.MiningDedupRadius,
		ThreatAlertRadius:   tune.ThreatAlertRadius,
		ThreatGracePeriod:   time.Duration(tune.ThreatGraceMs) * time.Millisecond,
	}

	b := bus.New()
	sw := swarm.New(cfg, b, logger)

	if !*disableLog {
		journal := persistlog.NewEventJournal(*dataDir)
		defer journal.Close()
		sw.AddEventSink(journal)
	}
	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "events.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		sw.AddEventSink(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := sw.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("coordinator stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		st, err := sw.Status(ctx2)
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP hivemind_bots Registered bots.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_bots gauge\n")
		fmt.Fprintf(rw, "hivemind_bots %d\n", st.Bots)

		fmt.Fprintf(rw, "# HELP hivemind_task_queue_len Pending tasks in the queue.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_task_queue_len gauge\n")
		fmt.Fprintf(rw, "hivemind_task_queue_len %d\n", st.QueueLen)

		fmt.Fprintf(rw, "# HELP hivemind_territories Territory cells created.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_territories gauge\n")
		fmt.Fprintf(rw, "hivemind_territories %d\n", st.Territories)

		fmt.Fprintf(rw, "# HELP hivemind_resources Known resource locations.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_resources gauge\n")
		fmt.Fprintf(rw, "hivemind_resources %d\n", st.Resources)

		fmt.Fprintf(rw, "# HELP hivemind_threats Threat board entries.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_threats gauge\n")
		fmt.Fprintf(rw, "hivemind_threats %d\n", st.Threats)

		fmt.Fprintf(rw, "# HELP hivemind_resources_gathered_total Resources reported depleted.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_resources_gathered_total counter\n")
		fmt.Fprintf(rw, "hivemind_resources_gathered_total %d\n", st.Gathered)

		fmt.Fprintf(rw, "# HELP hivemind_master_elected Whether a master is currently elected.\n")
		fmt.Fprintf(rw, "# TYPE hivemind_master_elected gauge\n")
		master := 0
		if st.MasterID != "" {
			master = 1
		}
		fmt.Fprintf(rw, "hivemind_master_elected %d\n", master)
	})

	if envBool("HM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	mux.HandleFunc("/v1/ws", ws.NewServer(sw, b, logger).Handler())

	obsSrv := observer.NewServer(sw, b, logger)
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (max_bots=%d heartbeat=%dms failover=%dms)",
		*addr, tune.MaxBots, tune.HeartbeatIntervalMs, tune.FailoverTimeoutMs)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
