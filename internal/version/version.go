// Package version holds the build identity reported by the CLI and by the
// MCP initialize handshake.
package version

// Overridable at build time:
// go build -ldflags "-X aura/internal/version.Version=0.3.0 -X aura/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ServerName is the serverInfo.name sent to MCP clients.
const ServerName = "aura"

// ProtocolVersion is the MCP protocol revision the server speaks.
const ProtocolVersion = "2024-11-05"

// Info returns the version with an abbreviated commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner.
func Full() string {
	return ServerName + " " + Version + "\n" +
		"commit:   " + Commit + "\n" +
		"built:    " + BuildDate + "\n" +
		"protocol: " + ProtocolVersion
}
