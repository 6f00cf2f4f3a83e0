package archive

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var (
	senderKeys    = []string{"sender", "from", "author", "sender_name", "name", "role", "speaker"}
	contentKeys   = []string{"content", "text", "message", "body", "msg"}
	timestampKeys = []string{"timestamp_ms", "timestamp", "date_unixtime", "date", "time", "ts", "created_at", "create_time"}
)

// nonTextBlocks are content block types that carry no conversational text.
var nonTextBlocks = map[string]bool{
	"tool_use":    true,
	"tool_result": true,
	"toolCall":    true,
	"thinking":    true,
	"image":       true,
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// recordToMessage converts one decoded export object. ok is false when the
// record has no usable text.
func recordToMessage(rec map[string]json.RawMessage) (Message, bool) {
	// Transcript-style lines nest the turn under "message" (role + content).
	if inner, ok := rec["message"]; ok && firstKey(rec, contentKeys[:2]) == nil {
		var nested map[string]json.RawMessage
		if json.Unmarshal(inner, &nested) == nil {
			msg, ok := recordToMessage(nested)
			if ok && msg.Timestamp == 0 {
				msg.Timestamp = parseTimestamp(firstKey(rec, timestampKeys))
			}
			if ok && msg.Sender == "" {
				msg.Sender = rawString(firstKey(rec, senderKeys))
			}
			return msg, ok
		}
	}

	text := strings.TrimSpace(extractText(firstKey(rec, contentKeys)))
	if text == "" {
		return Message{}, false
	}
	return Message{
		Sender:    strings.TrimSpace(rawString(firstKey(rec, senderKeys))),
		Content:   text,
		Timestamp: parseTimestamp(firstKey(rec, timestampKeys)),
	}, true
}

func firstKey(rec map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, k := range keys {
		if v, ok := rec[k]; ok && len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Sender objects such as {"name": "..."}.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return rawString(firstKey(obj, []string{"name", "username", "display_name"}))
	}
	return ""
}

// extractText accepts a plain string, an array of strings / {type,text} blocks,
// or an object with a text field.
func extractText(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err == nil {
		var sb strings.Builder
		for _, p := range parts {
			var block struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			var s string
			switch {
			case json.Unmarshal(p, &s) == nil:
			case json.Unmarshal(p, &block) == nil:
				if nonTextBlocks[block.Type] {
					continue
				}
				s = block.Text
			}
			sb.WriteString(s)
		}
		return sb.String()
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return extractText(firstKey(obj, []string{"text", "parts", "content"}))
	}
	return ""
}

// parseTimestamp returns epoch millis from a number (seconds or millis) or a
// date string; 0 when unparseable.
func parseTimestamp(raw json.RawMessage) int64 {
	if raw == nil {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return numberToMillis(string(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	if ms := numberToMillis(s); ms != 0 {
		return ms
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func numberToMillis(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	// Anything below 1e11 is seconds (1e11 s is year 5138).
	if f < 1e11 {
		return int64(f * 1000)
	}
	return int64(f)
}
