// Package archive turns raw chat-export documents into ordered canonical messages.
//
// Each supported export family has its own parser registered against a Format.
// The Registry dispatches on the declared format and degrades to lower-fidelity
// parsers when a structured parse yields nothing, so partially malformed
// archives still produce messages.
package archive

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoMessages is returned when no parser in the fallback chain produced a message.
var ErrNoMessages = errors.New("no messages parsed")

// Message is the canonical form every parser produces.
type Message struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch millis, 0 when unknown
	IsOwner   bool   `json:"is_owner"`
}

// DocumentMetadata is the document-level context supplied by the uploader.
type DocumentMetadata struct {
	AccountName  string   `json:"account_name,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Title        string   `json:"title,omitempty"`
}

// Document is one uploaded export body belonging to a user.
type Document struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Source     string // declared source name, e.g. "whatsapp"
	SourceType Format
	RawBody    []byte
	Metadata   DocumentMetadata
}
