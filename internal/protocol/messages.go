package protocol

import "encoding/json"

// Vec3 is a world position. Coordinates are fractional; dedup keys truncate
// them to integers.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ---- Inbound payloads ----

type RegisterMsg struct {
	ID           string   `json:"id"`
	Position     Vec3     `json:"position"`
	Capabilities []string `json:"capabilities,omitempty"`
	Role         string   `json:"role,omitempty"`
}

type UnregisterMsg struct {
	ID string `json:"id"`
}

type HeartbeatMsg struct {
	ID       string `json:"id"`
	Position *Vec3  `json:"position,omitempty"`
	Health   *int   `json:"health,omitempty"`
	Status   string `json:"status,omitempty"`
}

type TaskSubmitMsg struct {
	ID                 string          `json:"id,omitempty"`
	Description        string          `json:"description"`
	Priority           int             `json:"priority"`
	RequiredRole       string          `json:"required_role,omitempty"`
	RequiredCapability string          `json:"required_capability,omitempty"`
	Location           *Vec3           `json:"location,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

type TaskCompleteMsg struct {
	BotID   string `json:"bot_id"`
	TaskID  string `json:"task_id"`
	Success bool   `json:"success"`
}

type TaskFailedMsg struct {
	BotID  string `json:"bot_id"`
	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

type ResourceFoundMsg struct {
	BotID    string `json:"bot_id"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Location Vec3   `json:"location"`
}

type ResourceClaimMsg struct {
	BotID string `json:"bot_id"`
	Key   string `json:"key"`
}

type ResourceDepletedMsg struct {
	Key string `json:"key"`
}

type ThreatDetectedMsg struct {
	BotID    string `json:"bot_id"`
	Type     string `json:"type"`
	Location Vec3   `json:"location"`
	Severity string `json:"severity"`
}

type ThreatClearedMsg struct {
	Key   string `json:"key"`
	BotID string `json:"bot_id"`
}

type PathReserveMsg struct {
	BotID     string `json:"bot_id"`
	Waypoints []Vec3 `json:"waypoints"`
}

type PathReleaseMsg struct {
	BotID string `json:"bot_id"`
}

// ---- Outbound payloads ----

type BotRegisteredMsg struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Territory string   `json:"territory"`
	Position  Vec3     `json:"position"`
	Caps      []string `json:"capabilities,omitempty"`
}

type BotUnregisteredMsg struct {
	ID string `json:"id"`
}

type BotFailoverMsg struct {
	ID           string `json:"id"`
	RequeuedTask string `json:"requeued_task,omitempty"`
	LastSeenMs   int64  `json:"last_seen_ms"`
}

type MasterElectedMsg struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// TaskInfo is the wire view of a queued or assigned task.
type TaskInfo struct {
	ID                 string          `json:"id"`
	Description        string          `json:"description"`
	Priority           int             `json:"priority"`
	RequiredRole       string          `json:"required_role,omitempty"`
	RequiredCapability string          `json:"required_capability,omitempty"`
	Location           *Vec3           `json:"location,omitempty"`
	Attempts           int             `json:"attempts"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

type TaskAssignedMsg struct {
	BotID  string   `json:"bot_id"`
	TaskID string   `json:"task_id"`
	Task   TaskInfo `json:"task"`
}

type TaskCompletedMsg struct {
	BotID      string  `json:"bot_id"`
	TaskID     string  `json:"task_id"`
	Success    bool    `json:"success"`
	Efficiency float64 `json:"efficiency"`
}

type TaskDroppedMsg struct {
	BotID    string `json:"bot_id,omitempty"`
	TaskID   string `json:"task_id"`
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts"`
	Requeued bool   `json:"requeued"`
}

type ResourceSharedMsg struct {
	Key          string `json:"key"`
	Type         string `json:"type"`
	Location     Vec3   `json:"location"`
	DiscoveredBy string `json:"discovered_by"`
	Quantity     int    `json:"quantity"`
}

type ResourceClaimedMsg struct {
	Key   string `json:"key"`
	BotID string `json:"bot_id"`
}

type ResourceDepletedEvent struct {
	Key      string `json:"key"`
	Gathered int    `json:"gathered"`
}

// ThreatInfo is the wire view of a threat board entry.
type ThreatInfo struct {
	Key        string `json:"key"`
	Type       string `json:"type"`
	Location   Vec3   `json:"location"`
	Severity   string `json:"severity"`
	DetectedBy string `json:"detected_by"`
	Active     bool   `json:"active"`
}

type ThreatAlertMsg struct {
	TargetBotID string     `json:"target_bot_id"`
	Threat      ThreatInfo `json:"threat"`
	Distance    float64    `json:"distance"`
}

type ThreatClearedEvent struct {
	Key   string `json:"key"`
	BotID string `json:"bot_id,omitempty"`
}
