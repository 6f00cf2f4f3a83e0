package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseJSONL reads one message object per line. Malformed lines are skipped.
func ParseJSONL(body []byte) ([]Message, error) {
	var msgs []Message

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // skip malformed lines
		}
		if isToolRecord(rec) {
			continue
		}
		if m, ok := recordToMessage(rec); ok {
			msgs = append(msgs, m)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return msgs, nil
}

// isToolRecord reports agent transcript lines that are tool traffic, not conversation.
func isToolRecord(rec map[string]json.RawMessage) bool {
	var typ string
	if raw, ok := rec["type"]; ok {
		_ = json.Unmarshal(raw, &typ)
	}
	switch typ {
	case "progress", "summary", "system", "tool_result", "toolResult":
		return true
	}
	return false
}
