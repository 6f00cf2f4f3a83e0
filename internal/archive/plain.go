package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ParsePlain treats every non-empty line as one message. It accepts any input
// and is the last step of every fallback chain.
func ParsePlain(body []byte) ([]Message, error) {
	var msgs []Message
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msgs = append(msgs, Message{Content: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return msgs, nil
}
