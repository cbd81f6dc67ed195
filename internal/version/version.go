package version

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/postbuilder/internal/version.Version=v1.0.0".
var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats version, commit and build time for --version output.
func String() string {
	return Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
