package event

// serialize.go - JSONL serialization for assembled events.
//
// Events are serialized as JSONL (one compact JSON object per line, UTF-8,
// \n terminated) for the export path (pkg/client.Sessions.Export).

import "encoding/json"

// SerializeEvent converts a single event (or any JSON-marshalable value) to
// JSONL format: one compact JSON object followed by a newline.
func SerializeEvent(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	b = append(b, '\n')
	return b, nil
}

// SerializeEvents writes a sequence of events as JSONL, one per line, in
// the order given.
func SerializeEvents(events []AgentEvent) ([]byte, error) {
	var out []byte
	for _, e := range events {
		line, err := SerializeEvent(e)
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
	}
	return out, nil
}
