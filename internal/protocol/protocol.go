package protocol

import "encoding/json"

const Version = "1.0"

// Inbound topics (collaborators -> coordinator).
const (
	TopicBotRegister      = "bot.register"
	TopicBotUnregister    = "bot.unregister"
	TopicBotHeartbeat     = "bot.heartbeat"
	TopicTaskSubmit       = "task.submit"
	TopicTaskComplete     = "task.complete"
	TopicTaskFailed       = "task.failed"
	TopicResourceFound    = "resource.found"
	TopicResourceClaim    = "resource.claim"
	TopicResourceDepleted = "resource.depleted"
	TopicThreatDetected   = "threat.detected"
	TopicThreatCleared    = "threat.cleared"
	TopicPathReserve      = "path.reserve"
	TopicPathRelease      = "path.release"
)

// Outbound topics (coordinator -> collaborators/dashboard). task.failed,
// resource.depleted, threat.detected and threat.cleared are echoed back out
// on the same topic names they arrive on.
const (
	TopicBotRegistered   = "bot.registered"
	TopicBotUnregistered = "bot.unregistered"
	TopicBotFailover     = "bot.failover"
	TopicMasterElected   = "master.elected"
	TopicTaskAssigned    = "task.assigned"
	TopicTaskCompleted   = "task.completed"
	TopicResourceShared  = "resource.shared"
	TopicResourceClaimed = "resource.claimed"
	TopicThreatAlert     = "threat.alert"
)

// Envelope is the routing wrapper for every bus message.
type Envelope struct {
	Topic           string          `json:"topic"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}

// Encode wraps a payload into an envelope, panicking never: marshal errors
// surface as the error return so callers can drop the message.
func Encode(topic string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Topic: topic, ProtocolVersion: Version, Data: raw}, nil
}

// inboundTopics is the set of topics the coordinator consumes; everything
// else arriving on an agent socket is dropped.
var inboundTopics = map[string]struct{}{
	TopicBotRegister:      {},
	TopicBotUnregister:    {},
	TopicBotHeartbeat:     {},
	TopicTaskSubmit:       {},
	TopicTaskComplete:     {},
	TopicTaskFailed:       {},
	TopicResourceFound:    {},
	TopicResourceClaim:    {},
	TopicResourceDepleted: {},
	TopicThreatDetected:   {},
	TopicThreatCleared:    {},
	TopicPathReserve:      {},
	TopicPathRelease:      {},
}

func IsInbound(topic string) bool {
	_, ok := inboundTopics[topic]
	return ok
}

// BotTarget extracts the addressee of a bot-directed event, if any.
// Broadcast events return ("", false).
func BotTarget(e Envelope) (string, bool) {
	switch e.Topic {
	case TopicTaskAssigned:
		var m struct {
			BotID string `json:"bot_id"`
		}
		if err := json.Unmarshal(e.Data, &m); err != nil || m.BotID == "" {
			return "", false
		}
		return m.BotID, true
	case TopicThreatAlert:
		var m struct {
			TargetBotID string `json:"target_bot_id"`
		}
		if err := json.Unmarshal(e.Data, &m); err != nil || m.TargetBotID == "" {
			return "", false
		}
		return m.TargetBotID, true
	}
	return "", false
}
