package archive

import "strings"

// Format identifies a supported export family.
type Format int

const (
	FormatPlain Format = iota
	FormatTranscript
	FormatJSONL
	FormatJSON
)

var formatNames = map[Format]string{
	FormatPlain:      "plain",
	FormatTranscript: "transcript",
	FormatJSONL:      "jsonl",
	FormatJSON:       "json",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// HasIdentity reports whether messages in this format carry sender names.
func (f Format) HasIdentity() bool {
	return f != FormatPlain
}

// Structured reports whether messages are records whose order may differ
// from chronological order. Line transcripts are always kept in line order.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatJSONL
}

// Formats lists every supported format, highest fidelity first.
func Formats() []Format {
	return []Format{FormatJSON, FormatJSONL, FormatTranscript, FormatPlain}
}

// ParseFormat maps a declared source type to a Format. Unrecognised values
// map to FormatPlain, which accepts any input.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "telegram", "instagram", "facebook", "messenger", "discord", "chatgpt":
		return FormatJSON
	case "jsonl", "ndjson", "cc", "gateway":
		return FormatJSONL
	case "transcript", "whatsapp", "txt-chat", "chat", "signal":
		return FormatTranscript
	default:
		return FormatPlain
	}
}

// FormatFromExtension guesses a format from a file extension such as ".json".
// Text files are treated as transcripts; the fallback chain degrades them to
// plain lines when no line carries a sender prefix.
func FormatFromExtension(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return FormatJSON
	case "jsonl", "ndjson":
		return FormatJSONL
	case "txt", "chat", "log":
		return FormatTranscript
	default:
		return FormatPlain
	}
}

// fallbackChain is the degradation order tried for a declared format.
func fallbackChain(f Format) []Format {
	switch f {
	case FormatJSON:
		return []Format{FormatJSON, FormatJSONL, FormatTranscript, FormatPlain}
	case FormatJSONL:
		return []Format{FormatJSONL, FormatTranscript, FormatPlain}
	case FormatTranscript:
		return []Format{FormatTranscript, FormatPlain}
	default:
		return []Format{FormatPlain}
	}
}

// MatchesFilter reports whether a document declared as source passes filter.
// "" and "all" match everything. A format name ("json", "transcript", ...)
// matches its whole family; anything else must equal the source name.
func MatchesFilter(source, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == "all" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(source), filter) {
		return true
	}
	for _, f := range Formats() {
		if f.String() == filter {
			return ParseFormat(source) == f
		}
	}
	return false
}
