// Package indexdb maintains a sqlite read-model of coordinator events for
// the dashboard. It is a secondary index: writes are buffered and dropped
// under backpressure, and the coordinator never reads from it.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"hivemind.ai/internal/protocol"
	"hivemind.ai/internal/swarm"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan swarm.EventRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: absorb event bursts (mass failover, alert fan-out)
		// without stalling the coordinator loop.
		ch: make(chan swarm.EventRecord, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			topic TEXT NOT NULL,
			data_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_topic_seq ON events(topic, seq);`,
		`CREATE TABLE IF NOT EXISTS task_state (
			task_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			bot_id TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS topic_counts (
			topic TEXT PRIMARY KEY,
			count INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent enqueues the event for the writer goroutine. Never blocks;
// the JSONL journal remains the source of truth when the indexer lags.
func (s *SQLiteIndex) WriteEvent(rec swarm.EventRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- rec:
	default:
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	for rec := range s.ch {
		s.apply(rec)
	}
}

func (s *SQLiteIndex) apply(rec swarm.EventRecord) {
	at := rec.At.UTC().Format(time.RFC3339Nano)
	_, _ = s.db.Exec(`INSERT INTO events(at, topic, data_json) VALUES(?,?,?)`,
		at, rec.Topic, string(rec.Data))
	_, _ = s.db.Exec(`INSERT INTO topic_counts(topic, count) VALUES(?,1)
		ON CONFLICT(topic) DO UPDATE SET count = count + 1`, rec.Topic)
	s.applyTaskState(rec, at)
}

// applyTaskState keeps a small per-task projection current for the
// dashboard's task table.
func (s *SQLiteIndex) applyTaskState(rec swarm.EventRecord, at string) {
	switch rec.Topic {
	case protocol.TopicTaskAssigned:
		var m protocol.TaskAssignedMsg
		if unmarshal(rec, &m) != nil {
			return
		}
		_, _ = s.db.Exec(`INSERT INTO task_state(task_id, status, bot_id, attempts, updated_at)
			VALUES(?,?,?,?,?)
			ON CONFLICT(task_id) DO UPDATE SET status=excluded.status,
				bot_id=excluded.bot_id, attempts=excluded.attempts, updated_at=excluded.updated_at`,
			m.TaskID, "assigned", m.BotID, m.Task.Attempts, at)
	case protocol.TopicTaskCompleted:
		var m protocol.TaskCompletedMsg
		if unmarshal(rec, &m) != nil {
			return
		}
		status := "completed"
		if !m.Success {
			status = "completed_failed"
		}
		_, _ = s.db.Exec(`UPDATE task_state SET status=?, updated_at=? WHERE task_id=?`,
			status, at, m.TaskID)
	case protocol.TopicTaskFailed:
		var m protocol.TaskDroppedMsg
		if unmarshal(rec, &m) != nil {
			return
		}
		status := "dropped"
		if m.Requeued {
			status = "requeued"
		}
		_, _ = s.db.Exec(`INSERT INTO task_state(task_id, status, bot_id, attempts, updated_at)
			VALUES(?,?,?,?,?)
			ON CONFLICT(task_id) DO UPDATE SET status=excluded.status,
				bot_id=excluded.bot_id, attempts=excluded.attempts, updated_at=excluded.updated_at`,
			m.TaskID, status, m.BotID, m.Attempts, at)
	}
}

func unmarshal(rec swarm.EventRecord, v any) error {
	return json.Unmarshal(rec.Data, v)
}

// TopicCount reports how many events of a topic were indexed; used by the
// dashboard and by tests.
func (s *SQLiteIndex) TopicCount(topic string) (int, error) {
	// Flush-free read: counts lag until the writer drains, which is fine
	// for a dashboard.
	var n int
	err := s.db.QueryRow(`SELECT count FROM topic_counts WHERE topic = ?`, topic).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// TaskState returns the projected status of a task, or "" when unknown.
func (s *SQLiteIndex) TaskState(taskID string) (string, error) {
	var st string
	err := s.db.QueryRow(`SELECT status FROM task_state WHERE task_id = ?`, taskID).Scan(&st)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return st, err
}
