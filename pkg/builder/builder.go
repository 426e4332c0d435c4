// Package builder assembles normalized event.AgentEvent values out of a
// single provider log file. It is the one place identity is minted:
// deterministic session ids, random event ids, per-stream parent chains,
// and a provider-call-id registry that lets a later tool_result line find
// the event.AgentEvent its tool_call line produced.
//
// A Builder is scoped to exactly one file parse — scanning a second file
// means constructing a second Builder. Its internal maps are never
// promoted to package level, so two concurrent decoders never interfere
// with each other's identity assignment.
package builder

import (
	"time"

	"github.com/google/uuid"

	"github.com/lanegrid/agtrace/pkg/event"
)

// sessionNamespace is the fixed UUIDv5 namespace every session id is
// derived from. Changing this value would change every previously
// computed session id, so it is never configurable.
var sessionNamespace = uuid.MustParse("6d3b6f0a-6e8a-4f1f-9f7a-9a7f6f5c4b3e")

// SessionID deterministically derives a session identifier from a
// provider name and that provider's own on-disk session/log identifier
// (its file name, or an id embedded in the file's header line). The same
// (provider, rawID) pair always yields the same session id, which is what
// lets pkg/index upsert a session row idempotently across repeated scans
// of the same file.
func SessionID(provider, rawID string) uuid.UUID {
	return uuid.NewSHA1(sessionNamespace, []byte(provider+"\x00"+rawID))
}

// Builder mints event ids, tracks the last event id emitted per stream
// (for parent chaining), and maps a provider's own call identifiers to the
// event.AgentEvent id of the tool_call that produced them.
type Builder struct {
	sessionID uuid.UUID
	lastByKey map[streamKey]uuid.UUID
	callIndex map[string]uuid.UUID
}

type streamKey struct {
	kind string
	key  string
}

// New returns a Builder for one parse of one file belonging to the given
// session.
func New(sessionID uuid.UUID) *Builder {
	return &Builder{
		sessionID: sessionID,
		lastByKey: make(map[streamKey]uuid.UUID),
		callIndex: make(map[string]uuid.UUID),
	}
}

func (b *Builder) key(s event.StreamID) streamKey {
	return streamKey{kind: s.Kind, key: s.Key}
}

// Next mints a new event.AgentEvent in the given stream at the given
// timestamp, chaining it to the last event emitted on that same stream (if
// any), and registers the event against the builder's call-id index when
// the payload carries a provider call id.
func (b *Builder) Next(stream event.StreamID, ts time.Time, payload event.Payload) event.AgentEvent {
	id := uuid.New()
	k := b.key(stream)

	var parent *uuid.UUID
	if last, ok := b.lastByKey[k]; ok {
		p := last
		parent = &p
	}
	b.lastByKey[k] = id

	ev := event.AgentEvent{
		ID:        id,
		ParentID:  parent,
		SessionID: b.sessionID,
		Stream:    stream,
		Timestamp: ts,
		Payload:   payload,
	}

	if call, ok := payload.(event.ToolCallPayload); ok {
		if cid := call.ProviderCallID(); cid != "" {
			b.callIndex[cid] = id
		}
	}

	return ev
}

// ResolveCall looks up the event.AgentEvent id of the tool_call previously
// registered under providerCallID. ok is false if no call with that id has
// been seen yet in this parse — the decoder is responsible for deciding
// whether an unresolved result is an error or simply out-of-order input.
func (b *Builder) ResolveCall(providerCallID string) (uuid.UUID, bool) {
	id, ok := b.callIndex[providerCallID]
	return id, ok
}

// LastEventID returns the most recently minted event id on the given
// stream, if any. None of the bundled decoders calls it; Next already
// chains each new event onto this id.
func (b *Builder) LastEventID(stream event.StreamID) (uuid.UUID, bool) {
	id, ok := b.lastByKey[b.key(stream)]
	return id, ok
}
