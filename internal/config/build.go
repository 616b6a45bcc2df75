package config

// Build metadata set at link time:
//
//	go build -ldflags "-X rootle/internal/config.version=1.2.3 \
//	    -X rootle/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X rootle/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/api
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
