package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env, err := Encode(TopicBotRegister, RegisterMsg{
		ID:           "miner-1",
		Position:     Vec3{X: 1, Y: 64, Z: -3},
		Capabilities: []string{"mining"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.ProtocolVersion != Version {
		t.Fatalf("version=%q want %q", env.ProtocolVersion, Version)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Topic != TopicBotRegister {
		t.Fatalf("topic=%q", got.Topic)
	}
	var m RegisterMsg
	if err := json.Unmarshal(got.Data, &m); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if m.ID != "miner-1" || m.Position.Y != 64 {
		t.Fatalf("payload mismatch: %+v", m)
	}
}

func TestIsInbound(t *testing.T) {
	for _, topic := range []string{
		TopicBotRegister, TopicBotHeartbeat, TopicTaskSubmit, TopicTaskFailed,
		TopicResourceFound, TopicThreatDetected, TopicPathReserve,
	} {
		if !IsInbound(topic) {
			t.Fatalf("expected inbound: %s", topic)
		}
	}
	for _, topic := range []string{TopicBotRegistered, TopicMasterElected, TopicTaskAssigned, "made.up"} {
		if IsInbound(topic) {
			t.Fatalf("expected not inbound: %s", topic)
		}
	}
}

func TestBotTarget(t *testing.T) {
	assigned, err := Encode(TopicTaskAssigned, TaskAssignedMsg{BotID: "digger", TaskID: "T000001"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if target, ok := BotTarget(assigned); !ok || target != "digger" {
		t.Fatalf("task.assigned target=%q ok=%v", target, ok)
	}

	alert, err := Encode(TopicThreatAlert, ThreatAlertMsg{TargetBotID: "guard", Distance: 12})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if target, ok := BotTarget(alert); !ok || target != "guard" {
		t.Fatalf("threat.alert target=%q ok=%v", target, ok)
	}

	broadcast, err := Encode(TopicMasterElected, MasterElectedMsg{ID: "digger"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := BotTarget(broadcast); ok {
		t.Fatalf("broadcast reported a target")
	}
}
