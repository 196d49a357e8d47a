// Package version carries build metadata, set with -ldflags "-X product-store/internal/version.Version=...".
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
