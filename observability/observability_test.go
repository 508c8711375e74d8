package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l = l.With(String("k", "v"))
	l.Debug("d")
	l.Info("i", Int("n", 1))
	l.Warn("w")
	l.Error("e", Error("err", errors.New("boom")))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := Slog(slog.New(slog.NewJSONHandler(&buf, nil)))
	l = l.With(String("session", "abc"))
	l.Info("captured", Int("page", 2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if rec["msg"] != "captured" {
		t.Fatalf("msg = %v, want captured", rec["msg"])
	}
	if rec["session"] != "abc" {
		t.Fatalf("session = %v, want abc", rec["session"])
	}
	if rec["page"] != float64(2) {
		t.Fatalf("page = %v, want 2", rec["page"])
	}
}
