package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxSenderLen = 64

var (
	// [02/01/2024, 10:11:12] Alice: hi
	bracketedLineRE = regexp.MustCompile(`^\[(\d{1,4}[./-]\d{1,2}[./-]\d{1,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[APap]\.?[Mm]\.?)?)\]\s*(.*)$`)
	// 02/01/2024, 10:11 - Alice: hi
	dashedLineRE = regexp.MustCompile(`^(\d{1,4}[./-]\d{1,2}[./-]\d{1,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[APap]\.?[Mm]\.?)?)\s+[-–]\s+(.*)$`)
	// 2024-01-02 10:11:12 Alice: hi
	isoLineRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}(?::\d{2})?)\s+(.*)$`)
	// Alice: hi
	senderLineRE = regexp.MustCompile(`^([^\s:\[{"'][^:\n"{}]{0,63}?):\s+(\S.*)$`)
)

// dateOrder is the field order of slash dates within one transcript.
type dateOrder int

const (
	dayFirst dateOrder = iota
	monthFirst
)

var (
	dayFirstLayouts   = []string{"2/1/2006", "2/1/06"}
	monthFirstLayouts = []string{"1/2/2006", "1/2/06"}
	yearFirstLayouts  = []string{"2006/1/2"}
)

var transcriptClockLayouts = []string{
	"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04:05PM", "3:04PM",
}

type transcriptLine struct {
	date, clock string
	dated       bool
	sender      string
	text        string
	named       bool
	raw         string
}

// ParseTranscript reads delimiter-based chat transcripts with optional
// timestamp and sender prefixes. Unprefixed lines continue the previous
// message; unprefixed lines before the first sender become sender-less
// messages. Returns no messages unless at least half of the lines carry a
// recognised prefix, so free text degrades to the plain parser. Messages keep
// line order and one date order is chosen for the whole document.
func ParseTranscript(body []byte) ([]Message, error) {
	var lines []transcriptLine
	prefixed := 0

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimRight(strings.TrimPrefix(scanner.Text(), "\ufeff"), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		tl := transcriptLine{raw: strings.TrimSpace(raw)}
		var rest string
		tl.date, tl.clock, rest, tl.dated = splitTimestampPrefix(raw)
		tl.sender, tl.text, tl.named = splitSender(rest)
		if tl.dated || tl.named {
			prefixed++
		}
		lines = append(lines, tl)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if prefixed == 0 || prefixed*2 < len(lines) {
		return nil, nil
	}

	order := detectDateOrder(lines)
	var msgs []Message
	for _, tl := range lines {
		var ts int64
		if tl.dated {
			ts = parseTranscriptTime(tl.date, tl.clock, order)
		}
		switch {
		case tl.named:
			msgs = append(msgs, Message{Sender: tl.sender, Content: tl.text, Timestamp: ts})
		case tl.dated:
			// Dated line without a sender is a system notice ("Messages are end-to-end encrypted").
		case len(msgs) > 0:
			last := &msgs[len(msgs)-1]
			last.Content += "\n" + tl.raw
		default:
			msgs = append(msgs, Message{Content: tl.raw})
		}
	}
	return msgs, nil
}

func splitTimestampPrefix(line string) (date, clock, rest string, ok bool) {
	for _, re := range []*regexp.Regexp{bracketedLineRE, dashedLineRE, isoLineRE} {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1], m[2], m[3], true
		}
	}
	return "", "", line, false
}

// detectDateOrder picks day-first unless some date only makes sense
// month-first (second field above 12) and none only makes sense day-first.
func detectDateOrder(lines []transcriptLine) dateOrder {
	dayOnly, monthOnly := false, false
	for _, tl := range lines {
		if !tl.dated {
			continue
		}
		parts := strings.Split(normalizeDate(tl.date), "/")
		if len(parts) != 3 || len(parts[0]) == 4 {
			continue
		}
		first, err1 := strconv.Atoi(parts[0])
		second, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		if first > 12 {
			dayOnly = true
		}
		if second > 12 {
			monthOnly = true
		}
	}
	if monthOnly && !dayOnly {
		return monthFirst
	}
	return dayFirst
}

func normalizeDate(date string) string {
	return strings.NewReplacer(".", "/", "-", "/").Replace(date)
}

func splitSender(s string) (string, string, bool) {
	m := senderLineRE.FindStringSubmatch(s)
	if m == nil {
		return "", s, false
	}
	sender := strings.TrimSpace(m[1])
	if sender == "" || len(sender) > maxSenderLen || strings.Contains(sender, "://") {
		return "", s, false
	}
	return sender, strings.TrimSpace(m[2]), true
}

func parseTranscriptTime(date, clock string, order dateOrder) int64 {
	date = normalizeDate(date)
	clock = strings.ToUpper(strings.ReplaceAll(clock, ".", ""))

	layouts := dayFirstLayouts
	if order == monthFirst {
		layouts = monthFirstLayouts
	}
	for _, dl := range append(append([]string{}, yearFirstLayouts...), layouts...) {
		for _, cl := range transcriptClockLayouts {
			if t, err := time.Parse(dl+" "+cl, date+" "+clock); err == nil {
				return t.UnixMilli()
			}
		}
	}
	return 0
}
