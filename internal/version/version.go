package version

// Version is the version of the gdc library and CLI. It is overridden at
// build time with -ldflags "-X github.com/hashicorp-forge/gdc/internal/version.Version=...".
var Version = "0.4.0-dev"
