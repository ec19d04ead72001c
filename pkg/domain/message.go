package domain

import "time"

// Message represents a single intercepted notification. Immutable once received;
// produced by an intake (stream, webhook, feed poller) and consumed by the pipeline.
type Message struct {
	ID        int64
	Title     string
	Body      string
	Priority  int // 1-10
	App       string
	Source    string
	Timestamp time.Time
}

// OutcomeKind represents the result of applying rules to a message
type OutcomeKind int

const (
	// OutcomeUnchanged means no rule matched, message passes through as is
	OutcomeUnchanged OutcomeKind = iota
	// OutcomeSuppressed means a suppress rule matched, message is dropped silently
	OutcomeSuppressed
	// OutcomeReposted means a rule rewrote the message, original should be replaced
	OutcomeReposted
)

// Outcome is the rule engine decision for one message
type Outcome struct {
	Kind     OutcomeKind
	Title    string // effective title after tagging, valid for Reposted
	Priority int    // effective priority, valid for Reposted
}

// Normalized is the beautifier output for one message body
type Normalized struct {
	CleanText string
	Images    []string // ordered, known poster hosts first
	ImageAlts []string
	Facts     []string // fingerprint tokens for the enrichment hallucination guard
}

// Source kinds used for logging and per-source stats
const (
	SourceStream  = "stream"
	SourceWebhook = "webhook"
	SourceFeed    = "feed"
)
