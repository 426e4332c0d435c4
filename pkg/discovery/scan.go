// Package discovery walks a configured provider log root looking for
// session log files, using each provider.Decoder's cheap ScanHeader
// instead of a full parse so a scan of thousands of sessions stays fast.
//
// A scan never fails outright because one file is unreadable or
// malformed: it records the failure and continues, so pkg/client.Reindex
// always makes forward progress across a large, partially-corrupt log
// root instead of aborting on the first bad file.
package discovery

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/lanegrid/agtrace/pkg/provider"
)

// maxDepth bounds how many directories deep a scan will descend below its
// root, so a log root accidentally pointed at a much larger tree (e.g. a
// home directory) cannot turn a scan into an unbounded filesystem walk.
const maxDepth = 8

// Found is one session log file located during a scan, together with the
// header metadata its decoder could recover.
type Found struct {
	Path    string
	Header  provider.Header
	Decoder provider.Decoder
}

// Failure records one file a scan could not process.
type Failure struct {
	Path string
	Err  error
}

// Result is the outcome of one Scan call.
type Result struct {
	Found    []Found
	Failures []Failure
}

// Scan walks root looking for files any decoder in reg accepts, recording
// a Found entry (with header) for each, and a Failure entry for any file
// that probes positive but fails header scanning.
func Scan(root string, reg *provider.Registry) (Result, error) {
	var res Result

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if depth > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		dec, ok := reg.Probe(path)
		if !ok {
			return nil
		}

		header, err := dec.ScanHeader(path)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Err: err})
			return nil
		}

		res.Found = append(res.Found, Found{Path: path, Header: header, Decoder: dec})
		return nil
	})

	return res, err
}
