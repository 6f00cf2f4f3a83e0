package archive

import (
	"strings"
	"testing"
	"time"
)

func TestParseTranscript_WhatsAppStyles(t *testing.T) {
	body := strings.Join([]string{
		"[02/01/2024, 10:11:12] Alice: Are we still on for dinner?",
		"[02/01/2024, 10:12:40] Bob: Yes! I booked the table for eight.",
		"It's the place near the river",
		"02/01/2024, 10:13 - Messages and calls are end-to-end encrypted.",
		"02/01/2024, 10:14 - Alice: Perfect, see you then",
	}, "\n")

	msgs, err := ParseTranscript([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(msgs), msgs)
	}

	want := time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC).UnixMilli()
	if msgs[0].Timestamp != want {
		t.Errorf("msg[0] timestamp = %d, want %d", msgs[0].Timestamp, want)
	}
	if msgs[1].Sender != "Bob" {
		t.Errorf("msg[1] sender = %q", msgs[1].Sender)
	}
	if msgs[1].Content != "Yes! I booked the table for eight.\nIt's the place near the river" {
		t.Errorf("continuation not joined: %q", msgs[1].Content)
	}
	if msgs[2].Sender != "Alice" || msgs[2].Content != "Perfect, see you then" {
		t.Errorf("msg[2] = %q %q", msgs[2].Sender, msgs[2].Content)
	}
}

func TestParseTranscript_SenderOnly(t *testing.T) {
	msgs, err := ParseTranscript([]byte("Me: hey there\nJo: hi!\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Sender != "Me" || msgs[1].Sender != "Jo" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].Timestamp != 0 {
		t.Errorf("expected zero timestamp without prefix, got %d", msgs[0].Timestamp)
	}
}

func TestParseTranscript_NoPrefixesYieldsNothing(t *testing.T) {
	msgs, err := ParseTranscript([]byte("just some notes\nwithout any speakers\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(msgs))
	}
}

func TestParsePlain(t *testing.T) {
	msgs, err := ParsePlain([]byte("first line\n\n   \nsecond line  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "second line" {
		t.Errorf("content not trimmed: %q", msgs[1].Content)
	}
}

func TestParseTranscript_MonthFirstDates(t *testing.T) {
	body := strings.Join([]string{
		"1/12/24, 10:00 - Alice: first message on the twelfth",
		"1/12/24, 10:01 - Me: replying on the twelfth",
		"1/13/24, 09:00 - Alice: next day message thirteen",
	}, "\n")

	msgs, f, err := NewRegistry().Parse([]byte(body), FormatTranscript, DocumentMetadata{AccountName: "Me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != FormatTranscript || len(msgs) != 3 {
		t.Fatalf("expected 3 transcript messages, got %s %d", f, len(msgs))
	}

	want := []struct {
		content string
		ts      time.Time
	}{
		{"first message on the twelfth", time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)},
		{"replying on the twelfth", time.Date(2024, 1, 12, 10, 1, 0, 0, time.UTC)},
		{"next day message thirteen", time.Date(2024, 1, 13, 9, 0, 0, 0, time.UTC)},
	}
	for i, w := range want {
		if msgs[i].Content != w.content {
			t.Errorf("msg[%d] = %q, want %q", i, msgs[i].Content, w.content)
		}
		if msgs[i].Timestamp != w.ts.UnixMilli() {
			t.Errorf("msg[%d] timestamp = %d, want %d", i, msgs[i].Timestamp, w.ts.UnixMilli())
		}
	}
}

func TestParseTranscript_DayFirstDates(t *testing.T) {
	body := "13/01/2024, 09:00 - Alice: morning\n02/01/2024, 10:00 - Alice: earlier line"
	msgs, err := ParseTranscript([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).UnixMilli(); msgs[1].Timestamp != want {
		t.Errorf("msg[1] timestamp = %d, want %d", msgs[1].Timestamp, want)
	}
}

func TestRegistry_KeepsTranscriptLineOrder(t *testing.T) {
	body := "[02/01/2024, 10:00] Alice: later stamp first\n[01/01/2024, 10:00] Bob: earlier stamp second"
	msgs, _, err := NewRegistry().Parse([]byte(body), FormatTranscript, DocumentMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Sender != "Alice" {
		t.Fatalf("expected line order to be kept, got %+v", msgs)
	}
}

func TestParseTranscript_MostlyFreeTextDegradesToPlain(t *testing.T) {
	body := strings.Join([]string{
		"Today was a long day at the office.",
		"Reminder: buy milk for tomorrow morning",
		"I really enjoyed dinner with friends tonight.",
	}, "\n")

	msgs, err := ParseTranscript([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected transcript parser to decline, got %+v", msgs)
	}

	msgs, f, err := NewRegistry().Parse([]byte(body), FormatTranscript, DocumentMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != FormatPlain || len(msgs) != 3 {
		t.Fatalf("expected 3 plain messages, got %s %d", f, len(msgs))
	}
	if msgs[0].Content != "Today was a long day at the office." {
		t.Errorf("first line lost: %q", msgs[0].Content)
	}
}

func TestParseTranscript_KeepsLeadingUnprefixedLines(t *testing.T) {
	body := "Chat exported from my old phone\nJo: hi there\nMe: hello, good to hear from you"
	msgs, err := ParseTranscript([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Sender != "" || msgs[0].Content != "Chat exported from my old phone" {
		t.Errorf("leading line not kept: %+v", msgs[0])
	}
}
