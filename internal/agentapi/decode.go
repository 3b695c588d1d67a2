// ABOUTME: Response-shape normalizer shared by the directory and history paths
// ABOUTME: Accepts success envelopes, bare arrays and data-wrapped collections

package agentapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeRecords normalizes the three payload shapes deployed gateways
// emit for collection endpoints:
//
//	{"success": true, "<key>": [...]}
//	[...]
//	{"data": [...]}
//
// keys lists the envelope collection keys to try before "data". An
// envelope with success=false is an error even when a collection is
// present.
func decodeRecords(body []byte, keys ...string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parse response array: %w", err)
		}
		return records, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("parse response object: %w", err)
	}

	if raw, ok := envelope["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil && !success {
			return nil, fmt.Errorf("gateway reported failure: %s", envelopeErr(envelope))
		}
	}

	for _, key := range append(keys, "data") {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse %q collection: %w", key, err)
		}
		return records, nil
	}

	return nil, fmt.Errorf("response object has no collection under %v or \"data\"", keys)
}

// envelopeErr digs an error description out of a failed envelope.
func envelopeErr(envelope map[string]json.RawMessage) string {
	for _, key := range []string{"error", "message"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
			return msg
		}
	}
	return "no error detail"
}
