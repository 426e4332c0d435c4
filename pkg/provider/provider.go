// Package provider defines the Decoder contract every per-provider package
// (pkg/provider/claude, pkg/provider/codex, pkg/provider/gemini)
// implements, and a Registry for looking one up by name or by probing a
// file on disk.
//
// Provider auto-detection heuristics beyond the simple Probes/extension
// check below (config-file sniffing, CLI flags) are out of scope here —
// callers that know which provider produced a file should use Registry.Get
// directly.
package provider

import (
	"fmt"
	"time"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
)

// Header is the small amount of metadata a decoder can recover from a log
// file without fully parsing it: enough for pkg/discovery to list a
// session without assembling it.
type Header struct {
	Provider  string
	SessionID string
	Project   string
	StartedAt time.Time
}

// Decoder converts one on-disk log file belonging to a single provider
// into a sequence of normalized event.AgentEvent values.
type Decoder interface {
	// Name is the provider's identifier, e.g. "claude", "codex", "gemini".
	Name() string

	// Probes reports whether path looks like a log file this decoder
	// understands, based on extension and/or a cheap peek at its first
	// line. It must not fully parse the file.
	Probes(path string) bool

	// ScanHeader reads only as much of path as needed to recover Header.
	ScanHeader(path string) (Header, error)

	// Parse fully decodes path into normalized events, using b to mint
	// ids and chain parents. pkg/client uses it for one-shot full parses
	// (reindex and Sessions.Get); pkg/watch uses only ParseFrom.
	Parse(path string, b *builder.Builder) ([]event.AgentEvent, error)

	// ParseFrom decodes only the portion of path at or after byteOffset,
	// returning the newly decoded events and the byte offset just past the
	// last line it consumed. It
	// supports pkg/watch's incremental re-scan of an append-only log
	// file. offset 0 behaves like Parse.
	ParseFrom(path string, byteOffset int64, b *builder.Builder) (events []event.AgentEvent, newOffset int64, err error)
}

// Registry looks decoders up by provider name or by probing a path.
type Registry struct {
	byName map[string]Decoder
	order  []Decoder
}

// NewRegistry returns a Registry populated with decoders, preserving the
// given order for probe precedence.
func NewRegistry(decoders ...Decoder) *Registry {
	r := &Registry{byName: make(map[string]Decoder)}
	for _, d := range decoders {
		r.byName[d.Name()] = d
		r.order = append(r.order, d)
	}
	return r
}

// Get returns the decoder registered under name.
func (r *Registry) Get(name string) (Decoder, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Probe returns the first registered decoder (in registration order)
// whose Probes method accepts path.
func (r *Registry) Probe(path string) (Decoder, bool) {
	for _, d := range r.order {
		if d.Probes(path) {
			return d, true
		}
	}
	return nil, false
}

// Names returns every registered provider name, in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, d := range r.order {
		names[i] = d.Name()
	}
	return names
}

// ErrUnknownProvider is returned by callers that look a provider name up
// against a Registry and find nothing registered.
type ErrUnknownProvider struct {
	Name string
}

func (e ErrUnknownProvider) Error() string {
	return fmt.Sprintf("provider: unknown provider %q", e.Name)
}
