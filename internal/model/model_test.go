package model

import (
	"errors"
	"math"
	"testing"
)

func TestParseJobMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"camelCase key", `{"userId":"user-1"}`, "user-1", nil},
		{"snake_case key", `{"user_id":"user-2"}`, "user-2", nil},
		{"camelCase wins when both present", `{"userId":"a","user_id":"b"}`, "a", nil},
		{"whitespace trimmed", `{"userId":"  user-3  "}`, "user-3", nil},
		{"missing identifier", `{}`, "", ErrMissingUserID},
		{"empty identifier", `{"userId":"   "}`, "", ErrMissingUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseJobMessage([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJobMessage: %v", err)
			}
			if msg.UserID != tt.want {
				t.Errorf("UserID = %q, want %q", msg.UserID, tt.want)
			}
		})
	}
}

func TestParseJobMessage_InvalidJSON(t *testing.T) {
	if _, err := ParseJobMessage([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNormalizeDecision(t *testing.T) {
	tests := []struct {
		raw  string
		want Decision
	}{
		{"Approved", DecisionApproved},
		{"approved", DecisionApproved},
		{"  APPROVED ", DecisionApproved},
		{"Rejected", DecisionRejected},
		{"Maybe", DecisionRejected},
		{"", DecisionRejected},
	}

	for _, tt := range tests {
		if got := NormalizeDecision(tt.raw); got != tt.want {
			t.Errorf("NormalizeDecision(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{62.7, 62},
		{100, 100},
		{150, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		if got := ClampConfidence(tt.raw); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFailClosedDecision(t *testing.T) {
	d := FailClosedDecision()

	if d.Decision != DecisionRejected {
		t.Errorf("decision = %q, want Rejected", d.Decision)
	}
	if d.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", d.Confidence)
	}
	if len(d.KeyFactors) != 1 || d.KeyFactors[0] != "Evaluation error occurred" {
		t.Errorf("keyFactors = %v", d.KeyFactors)
	}
	if d.PolicyReferences == nil || len(d.PolicyReferences) != 0 {
		t.Errorf("policyReferences = %v, want empty non-nil slice", d.PolicyReferences)
	}
}

func TestVisionRecordIsEmpty(t *testing.T) {
	if !(VisionRecord{SourceKey: "k"}).IsEmpty() {
		t.Error("record with only a source key should be empty")
	}
	color := "red"
	if (VisionRecord{VehicleColor: &color}).IsEmpty() {
		t.Error("record with a populated field should not be empty")
	}
}

func TestDocumentRecordIsEmpty(t *testing.T) {
	if !(DocumentRecord{SourceKey: "k"}).IsEmpty() {
		t.Error("record with only a source key should be empty")
	}
	if (DocumentRecord{RawText: "text"}).IsEmpty() {
		t.Error("record with raw text should not be empty")
	}
	if (DocumentRecord{Fields: map[string]any{"claimNumber": "C1"}}).IsEmpty() {
		t.Error("record with fields should not be empty")
	}
}
