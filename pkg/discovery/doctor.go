package discovery

import "github.com/lanegrid/agtrace/pkg/provider"

// Diagnostics is a per-provider-root health report: how many files looked
// like they belonged to a known provider, how many of those could be
// header-scanned successfully, and a capped sample of the failures —
// enough for an operator to tell "my config points at the wrong
// directory" apart from "one session file got truncated mid-write".
//
// Grounded on the diagnostic shape of the teacher's `doctor` subcommand
// (cmd/sub/doctor.go), which reports sqlite3-binary and ledger-file health
// checks; here the same report shape is generalized from "is the ledger
// reachable" to "how healthy is this log root".
type Diagnostics struct {
	Root           string
	FilesProbed    int
	FilesScanned   int
	FailureSamples []Failure
}

const maxFailureSamples = 20

// Doctor runs a Scan over root and reduces it to a Diagnostics summary,
// capping the number of failure samples retained so a badly corrupted
// root doesn't blow up the report.
func Doctor(root string, reg *provider.Registry) (Diagnostics, error) {
	res, err := Scan(root, reg)
	diag := Diagnostics{
		Root:         root,
		FilesProbed:  len(res.Found) + len(res.Failures),
		FilesScanned: len(res.Found),
	}
	if len(res.Failures) > maxFailureSamples {
		diag.FailureSamples = res.Failures[:maxFailureSamples]
	} else {
		diag.FailureSamples = res.Failures
	}
	return diag, err
}
