package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-facing configuration surface (swarm.yaml). All
// fields have working defaults; a missing file yields the defaults.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Enabled bool `yaml:"enabled"`

	MaxBots           int     `yaml:"max_bots"`
	TerritoryCellSize float64 `yaml:"territory_cell_size"`

	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms"`
	FailoverTimeoutMs   int `yaml:"failover_timeout_ms"`

	PathCollisionRadius float64 `yaml:"path_collision_radius"`

	TaskQueueCap     int `yaml:"task_queue_cap"`
	ResourceCacheCap int `yaml:"resource_cache_cap"`
	ThreatCacheCap   int `yaml:"threat_cache_cap"`

	MiningNetworkWindow int     `yaml:"mining_network_window"`
	MiningDedupRadius   float64 `yaml:"mining_dedup_radius"`

	ThreatAlertRadius float64 `yaml:"threat_alert_radius"`
	ThreatGraceMs     int     `yaml:"threat_grace_ms"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		Enabled:             true,
		MaxBots:             10,
		TerritoryCellSize:   100,
		HeartbeatIntervalMs: 5000,
		FailoverTimeoutMs:   30000,
		PathCollisionRadius: 3,
		TaskQueueCap:        100,
		ResourceCacheCap:    500,
		ThreatCacheCap:      100,
		MiningNetworkWindow: 50,
		MiningDedupRadius:   5,
		ThreatAlertRadius:   100,
		ThreatGraceMs:       60000,
	}
}

// Load reads swarm.yaml over the defaults, so omitted keys keep their
// default values. An empty path returns the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("swarm.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("swarm.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.MaxBots <= 0 {
		return fmt.Errorf("max_bots must be > 0")
	}
	if t.TerritoryCellSize <= 0 {
		return fmt.Errorf("territory_cell_size must be > 0")
	}
	if t.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("heartbeat_interval_ms must be > 0")
	}
	if t.FailoverTimeoutMs <= t.HeartbeatIntervalMs {
		return fmt.Errorf("failover_timeout_ms must exceed heartbeat_interval_ms")
	}
	if t.PathCollisionRadius <= 0 {
		return fmt.Errorf("path_collision_radius must be > 0")
	}
	if t.TaskQueueCap <= 0 {
		return fmt.Errorf("task_queue_cap must be > 0")
	}
	if t.ResourceCacheCap <= 0 || t.ThreatCacheCap <= 0 {
		return fmt.Errorf("cache capacities must be > 0")
	}
	return nil
}
