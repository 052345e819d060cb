package models

import (
	"encoding/json"
	"testing"
)

func TestMoneyJSONAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A Money  `json:"a"`
		B Money  `json:"b"`
		C *Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"1250.456","b":980.1,"c":null}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A.String() != "1250.46" {
		t.Fatalf("unexpected a: %s", payload.A.String())
	}
	if payload.B.String() != "980.10" {
		t.Fatalf("unexpected b: %s", payload.B.String())
	}
	if payload.C != nil {
		t.Fatalf("expected nil pointer for null")
	}

	out, err := json.Marshal(payload.B)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `"980.10"` {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestParseMoneyRejectsGarbage(t *testing.T) {
	if _, err := ParseMoney("twelve"); err == nil {
		t.Fatalf("expected parse error")
	}
}
