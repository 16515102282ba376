package logfields

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		field   zapcore.Field
		wantKey string
		wantVal string
	}{
		{"RunID", RunID("r1"), KeyRunID, "r1"},
		{"Command", Command("index"), KeyCommand, "index"},
		{"Server", Server("http://solr"), KeyServer, "http://solr"},
		{"Core", Core("stage"), KeyCore, "stage"},
		{"LiveCore", LiveCore("live"), KeyLiveCore, "live"},
		{"Mode", Mode("delta"), KeyMode, "delta"},
		{"Status", Status("idle"), KeyStatus, "idle"},
		{"Outcome", Outcome("noop"), KeyOutcome, "noop"},
		{"Version", Version("7"), KeyVersion, "7"},
		{"Cursor", Cursor("1970-01-01 00:00:00"), KeyCursor, "1970-01-01 00:00:00"},
		{"Path", Path("/solr/x"), KeyPath, "/solr/x"},
		{"Job", Job("nightly"), KeyJob, "nightly"},
	}

	for _, tc := range cases {
		if tc.field.Key != tc.wantKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.wantKey, tc.field.Key)
		}
		if tc.field.String != tc.wantVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.wantVal, tc.field.String)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if f := DocCount(5); f.Key != KeyDocCount || f.Integer != 5 {
		t.Fatalf("DocCount = %+v", f)
	}
	if f := Attempt(2); f.Key != KeyAttempt || f.Integer != 2 {
		t.Fatalf("Attempt = %+v", f)
	}
	if f := Polls(3); f.Key != KeyPolls || f.Integer != 3 {
		t.Fatalf("Polls = %+v", f)
	}
	if f := Duration(1500 * time.Millisecond); f.Key != KeyDurationMS || f.Integer != 1500 {
		t.Fatalf("Duration = %+v", f)
	}
}

func TestErrorHelper(t *testing.T) {
	if f := Error(nil); f.Key != KeyError || f.String != "" {
		t.Fatalf("Error(nil) = %+v", f)
	}
	if f := Error(errors.New("boom")); f.String != "boom" {
		t.Fatalf("Error(boom) = %+v", f)
	}
}
