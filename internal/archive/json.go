package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// preferredArrayFields are checked before falling back to the first array-valued field.
var preferredArrayFields = map[string]bool{
	"messages":      true,
	"conversations": true,
	"chats":         true,
	"items":         true,
}

// ParseJSON reads a structured export: a top-level array of message objects,
// or an object holding such an array (e.g. {"messages": [...]}).
func ParseJSON(body []byte) ([]Message, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("expected JSON array or object, got %T", tok)
	}

	switch delim {
	case '[':
		return decodeRecordStream(dec)
	case '{':
		var fallback json.RawMessage
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read field name: %w", err)
			}
			key, _ := keyTok.(string)

			var value json.RawMessage
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("read field %q: %w", key, err)
			}
			if !isArray(value) {
				continue
			}
			if preferredArrayFields[key] {
				return decodeRecordArray(value)
			}
			if fallback == nil {
				fallback = value
			}
		}
		if fallback != nil {
			return decodeRecordArray(fallback)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// decodeRecordStream decodes array elements one at a time after the opening '['.
func decodeRecordStream(dec *json.Decoder) ([]Message, error) {
	var msgs []Message
	for dec.More() {
		var rec map[string]json.RawMessage
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", len(msgs), err)
		}
		if m, ok := recordToMessage(rec); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func decodeRecordArray(raw json.RawMessage) ([]Message, error) {
	var recs []json.RawMessage
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode message array: %w", err)
	}
	var msgs []Message
	for _, r := range recs {
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(r, &rec); err != nil {
			continue // non-object entries carry no message
		}
		if m, ok := recordToMessage(rec); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
