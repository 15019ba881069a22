// Package version holds build information for symtrack.
package version

// Set at build time:
// go build -ldflags "-X symtrack/internal/version.Version=1.0.0 -X symtrack/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "symtrack " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built: " + BuildDate
}
