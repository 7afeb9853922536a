package swarm

import "time"

type Config struct {
	// MaxBots caps the registry; register returns false beyond it.
	MaxBots int

	// TerritoryCellSize is the side length of a territory grid cell.
	TerritoryCellSize float64

	// HeartbeatInterval is the monitor tick period; FailoverTimeout is how
	// long a bot may go silent before it is declared dead.
	HeartbeatInterval time.Duration
	FailoverTimeout   time.Duration

	// PathCollisionRadius rejects reservations with waypoints closer than
	// this to another bot's reserved waypoints.
	PathCollisionRadius float64

	TaskQueueCap     int
	ResourceCacheCap int
	ThreatCacheCap   int

	// Mining network: per-ore sliding window of discovered locations,
	// deduplicated within MiningDedupRadius blocks.
	MiningNetworkWindow int
	MiningDedupRadius   float64

	// ThreatAlertRadius selects which bots get threat.alert on detection.
	// Cleared threats stay queryable for ThreatGracePeriod before removal.
	ThreatAlertRadius float64
	ThreatGracePeriod time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxBots <= 0 {
		c.MaxBots = 10
	}
	if c.TerritoryCellSize <= 0 {
		c.TerritoryCellSize = 100
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.FailoverTimeout <= 0 {
		c.FailoverTimeout = 30 * time.Second
	}
	if c.PathCollisionRadius <= 0 {
		c.PathCollisionRadius = 3
	}
	if c.TaskQueueCap <= 0 {
		c.TaskQueueCap = 100
	}
	if c.ResourceCacheCap <= 0 {
		c.ResourceCacheCap = 500
	}
	if c.ThreatCacheCap <= 0 {
		c.ThreatCacheCap = 100
	}
	if c.MiningNetworkWindow <= 0 {
		c.MiningNetworkWindow = 50
	}
	if c.MiningDedupRadius <= 0 {
		c.MiningDedupRadius = 5
	}
	if c.ThreatAlertRadius <= 0 {
		c.ThreatAlertRadius = 100
	}
	if c.ThreatGracePeriod <= 0 {
		c.ThreatGracePeriod = 60 * time.Second
	}
}
