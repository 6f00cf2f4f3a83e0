package hermes

const (
	// SubjectImportRequested asks the curator to run a curation pass for a user.
	SubjectImportRequested = "curator.import.requested"
	// SubjectImportCompleted reports the outcome of a curation pass.
	SubjectImportCompleted = "curator.import.completed"
)

// ImportRequested is published by the upload service once a user's documents
// are stored. Zero-valued overrides fall back to the service configuration.
type ImportRequested struct {
	RequestID    string   `json:"request_id,omitempty"`
	UserID       string   `json:"user_id"`
	SourceFilter string   `json:"source_filter,omitempty"`
	MaxSamples   *int     `json:"max_samples,omitempty"`
	MinQuality   *float64 `json:"min_quality,omitempty"`
}

// ImportCompleted carries the counts of a finished run.
type ImportCompleted struct {
	RequestID        string         `json:"request_id,omitempty"`
	UserID           string         `json:"user_id"`
	Created          int            `json:"created"`
	Documents        int            `json:"documents"`
	DocumentsSkipped int            `json:"documents_skipped"`
	Candidates       int            `json:"candidates"`
	Accepted         int            `json:"accepted"`
	WriteFailures    int            `json:"write_failures"`
	Intents          map[string]int `json:"intents,omitempty"`
	Canceled         bool           `json:"canceled,omitempty"`
	DurationMS       int64          `json:"duration_ms"`
	Error            string         `json:"error,omitempty"`
}
