package model

import "testing"

func TestJsonbScanCorruptedResetsToZero(t *testing.T) {
	answers := AnswerMap{"q1": "stale"}
	if err := answers.Scan([]byte(`{"q1": not-json`)); err != nil {
		t.Fatalf("scan corrupted answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("answers = %v, want reset to zero value", answers)
	}

	list := StringList{"lunch"}
	if err := list.Scan([]byte(`[broken`)); err != nil {
		t.Fatalf("scan corrupted list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %v, want reset to zero value", list)
	}
}

func TestJsonbScanValidPayload(t *testing.T) {
	var answers AnswerMap
	if err := answers.Scan([]byte(`{"q1": 5, "q2": "好吃"}`)); err != nil {
		t.Fatalf("scan answers: %v", err)
	}
	if answers["q2"] != "好吃" {
		t.Fatalf("answers = %v, want q2 decoded", answers)
	}

	var list StringList
	if err := list.Scan(`["lunch","dinner"]`); err != nil {
		t.Fatalf("scan list: %v", err)
	}
	if !list.Contains("dinner") {
		t.Fatalf("list = %v, want to contain dinner", list)
	}
}
