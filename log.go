package scavenger

import (
	"io"
	"log"
)

// pkgLog carries Encoder state-transition diagnostics. Library code never
// prints on its own; output is discarded unless a caller opts in via
// SetLogOutput, matching the rest of this package's no-surprises error
// handling (every failure is also returned as an error).
var pkgLog = log.New(io.Discard, "scavenger: ", log.LstdFlags)

// SetLogOutput redirects the package's internal state-transition log.
func SetLogOutput(w io.Writer) {
	pkgLog.SetOutput(w)
}
