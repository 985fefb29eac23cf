package core

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X sdgateway/core.Version=$(git describe --tags --always)" .
//
// Defaults to "dev" when not injected.
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags:
//
//	go build -ldflags "-X sdgateway/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
var BuildTime = "unknown"

// GitCommit is the git commit hash, set at build time via ldflags:
//
//	go build -ldflags "-X sdgateway/core.GitCommit=$(git rev-parse --short HEAD)" .
var GitCommit = "unknown"
