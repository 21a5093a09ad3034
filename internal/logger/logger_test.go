package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{LevelOff, false, false},
		{LevelNormal, false, true},
		{LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)
			log.Debug("dbg %d", 1)
			log.Info("inf %d", 2)

			out := buf.String()
			if got := strings.Contains(out, "dbg 1"); got != tt.wantDebug {
				t.Errorf("debug visible=%v, want %v (out=%q)", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "inf 2"); got != tt.wantInfo {
				t.Errorf("info visible=%v, want %v (out=%q)", got, tt.wantInfo, out)
			}
		})
	}
}

func TestNamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelOff, &buf)
	child := root.Named("vision").Named("ort")

	child.Warn("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output while off, got %q", buf.String())
	}

	root.SetLevel(LevelNormal)
	child.Warn("shown")
	if !strings.Contains(buf.String(), "vision: ort: shown") {
		t.Fatalf("expected prefixed output, got %q", buf.String())
	}
	if child.GetLevel() != LevelNormal {
		t.Fatalf("child level = %s, want normal", child.GetLevel())
	}
}
