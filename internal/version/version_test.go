package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() {
		Version, Commit = origVersion, origCommit
	}()

	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "1.2.0"},
		{"abc", "1.2.0"},
		{"1234567", "1.2.0"},
		{"abc1234567890", "1.2.0 (abc1234)"},
	}

	for _, tt := range tests {
		Version, Commit = "1.2.0", tt.commit
		if got := Info(); got != tt.want {
			t.Errorf("Info() with commit %q = %q, want %q", tt.commit, got, tt.want)
		}
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{"symtrack " + Version, "commit: ", "built: "} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q: %s", want, full)
		}
	}
}
