package omf

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestDynamicTypeSchema(t *testing.T) {
	typ := NewDynamicType("pressure-reading",
		NumberProperty("Pressure"),
		StringProperty("Unit"),
	)

	raw, err := typ.Raw()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema["id"] != "pressure-reading" {
		t.Errorf("id = %v", schema["id"])
	}
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	if schema["classification"] != "dynamic" {
		t.Errorf("classification = %v", schema["classification"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema["properties"])
	}
	want := map[string]any{
		"Time":     map[string]any{"type": "string", "format": "date-time", "isindex": true},
		"Pressure": map[string]any{"type": "number"},
		"Unit":     map[string]any{"type": "string"},
	}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("properties = %v, want %v", props, want)
	}
}

func TestStaticTypeSchema(t *testing.T) {
	typ := NewStaticType("pump", StringProperty("Model"))

	raw, err := typ.Raw()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var schema struct {
		Classification string              `json:"classification"`
		Properties     map[string]Property `json:"properties"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if schema.Classification != "static" {
		t.Errorf("classification = %q", schema.Classification)
	}
	if p := schema.Properties["Name"]; !p.IsIndex || p.Type != "string" {
		t.Errorf("expected Name string index, got %+v", p)
	}
}

func TestTypeSchemaRejectsBadProperties(t *testing.T) {
	if _, err := (Type{ID: "t", Properties: []Property{{Type: "number"}}}).Raw(); err == nil {
		t.Error("expected error for unnamed property")
	}

	dup := Type{ID: "t", Properties: []Property{
		NumberProperty("Value"),
		StringProperty("Value"),
	}}
	if _, err := dup.Raw(); err == nil {
		t.Error("expected error for duplicate property")
	}
}

func TestSample(t *testing.T) {
	ts := time.Date(2024, 3, 15, 8, 30, 0, 500000000, time.FixedZone("CET", 3600))
	fields := map[string]any{"Pressure": 42.1}

	record := Sample(ts, fields)

	if record[TimeField] != "2024-03-15T07:30:00.5Z" {
		t.Errorf("time = %v, want RFC 3339 UTC", record[TimeField])
	}
	if record["Pressure"] != 42.1 {
		t.Errorf("field lost: %v", record)
	}

	// The input map is not mutated.
	if _, ok := fields[TimeField]; ok {
		t.Error("input map was modified")
	}
}

func TestLinkBuilders(t *testing.T) {
	al := AssetLink("plant", RootIndex, "pump-1")
	if al.Source.Index != RootIndex || al.Target.Index != "pump-1" {
		t.Errorf("asset link = %+v", al)
	}
	if al.Source.TypeID != "plant" || al.Target.TypeID != "plant" {
		t.Errorf("asset link type IDs = %+v", al)
	}

	sl := StreamLink("plant", "pump-1", "pump-1-pressure")
	if sl.Target.StreamID != "pump-1-pressure" || sl.Target.TypeID != "" {
		t.Errorf("stream link target = %+v", sl.Target)
	}

	raw, err := json.Marshal(sl)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	// Empty ends serialize without noise fields.
	want := `{"source":{"type_id":"plant","index":"pump-1"},"target":{"stream_id":"pump-1-pressure"}}`
	if string(raw) != want {
		t.Errorf("link JSON = %s, want %s", raw, want)
	}
}
