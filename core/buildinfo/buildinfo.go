// Package buildinfo carries release metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/landerpin123/uniq-tarot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/landerpin123/uniq-tarot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/landerpin123/uniq-tarot/core/buildinfo.Date=$(date -u +%FT%TZ)"
//
// Unstamped builds report "dev".
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC 3339, UTC.
	Date = ""
)
