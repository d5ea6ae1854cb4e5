package config

// Build metadata injected by the linker:
//
//	go build -ldflags "-X alertpipe/internal/config.version=$(git describe --tags) \
//	    -X alertpipe/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X alertpipe/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Local builds without ldflags report dev/none/unknown.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo snapshots the linker-injected variables into a BuildInfo.
// LoadConfig calls it once to fill Config.Build.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
