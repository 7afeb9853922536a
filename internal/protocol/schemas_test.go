package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	envelopeSchema := compile("envelope.schema.json")
	registerSchema := compile("register.schema.json")
	taskSubmitSchema := compile("task_submit.schema.json")
	taskAssignedSchema := compile("task_assigned.schema.json")
	threatAlertSchema := compile("threat_alert.schema.json")

	var envelope any
	_ = json.Unmarshal([]byte(`{
	  "topic":"bot.register",
	  "protocol_version":"1.0",
	  "data":{"id":"miner-1","position":{"x":10,"y":64,"z":-3}}
	}`), &envelope)
	validate(envelopeSchema, envelope)

	var register any
	_ = json.Unmarshal([]byte(`{
	  "id":"miner-1",
	  "position":{"x":10.5,"y":64,"z":-3.2},
	  "capabilities":["mining","combat"],
	  "role":"miner"
	}`), &register)
	validate(registerSchema, register)

	var submit any
	_ = json.Unmarshal([]byte(`{
	  "description":"mine diamond vein",
	  "priority":75,
	  "required_role":"miner",
	  "required_capability":"mining",
	  "location":{"x":120,"y":12,"z":-40}
	}`), &submit)
	validate(taskSubmitSchema, submit)

	var assigned any
	_ = json.Unmarshal([]byte(`{
	  "bot_id":"miner-1",
	  "task_id":"T000001",
	  "task":{
	    "id":"T000001",
	    "description":"mine diamond vein",
	    "priority":75,
	    "required_role":"miner",
	    "location":{"x":120,"y":12,"z":-40},
	    "attempts":0
	  }
	}`), &assigned)
	validate(taskAssignedSchema, assigned)

	var alert any
	_ = json.Unmarshal([]byte(`{
	  "target_bot_id":"miner-1",
	  "threat":{
	    "key":"118,12,-38",
	    "type":"creeper",
	    "location":{"x":118,"y":12,"z":-38},
	    "severity":"high",
	    "detected_by":"scout-1",
	    "active":true
	  },
	  "distance":3.2
	}`), &alert)
	validate(threatAlertSchema, alert)
}
