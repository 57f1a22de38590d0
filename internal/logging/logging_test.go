package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, tt.verbose)
			logger.Debug("debug line")
			logger.Info("info line")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.wantDebug {
				t.Fatalf("debug output mismatch: %q", out)
			}
			if !strings.Contains(out, "info line") {
				t.Fatalf("expected info output: %q", out)
			}
		})
	}
}
