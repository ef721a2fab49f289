// Package transcript models a single session's append-only JSONL transcript:
// the per-line Message record and the derived Session metadata summary. The
// lenient decoder that turns a byte stream into them lives in the jsonl
// subpackage.
package transcript

import "time"

// MessageType enumerates the "type" discriminator on a transcript line.
// Values outside the two counted types are ingested (for completeness of
// text extraction and timestamp/field derivation) but never counted toward
// message_count.
type MessageType string

const (
	TypeUser               MessageType = "user"
	TypeAssistant          MessageType = "assistant"
	TypeSummary            MessageType = "summary"
	TypeFileHistorySnapshot MessageType = "file-history-snapshot"
)

// counted reports whether a message type contributes to message_count,
// user_message_count, and assistant_message_count. message_count is always
// exactly user_message_count + assistant_message_count; summary and other
// record types are ingested for text/field extraction but never counted.
func (t MessageType) counted() bool {
	return t == TypeUser || t == TypeAssistant
}

// TokenUsage mirrors the upstream producer's per-message usage block.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Message is one decoded line of a session's JSONL transcript.
type Message struct {
	UUID       string      `json:"uuid"`
	ParentUUID string      `json:"parent_uuid,omitempty"`
	SessionID  string      `json:"session_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       MessageType `json:"type"`
	Cwd        string      `json:"cwd,omitempty"`
	GitBranch  string      `json:"git_branch,omitempty"`
	Slug       string      `json:"slug,omitempty"`
	Model      string      `json:"model,omitempty"`
	Content    Content     `json:"content"`
	Usage      *TokenUsage `json:"usage,omitempty"`
	CostUSD    *float64    `json:"cost_usd,omitempty"`

	// TextBody is derived, not decoded: the result of Content.ExtractText(),
	// populated by the reader after unmarshaling.
	TextBody string `json:"-"`
}

// Metadata is the deterministic summary derived from a session's decoded
// message sequence, per the field derivation rules in the format this
// package parses.
type Metadata struct {
	MessageCount          int
	UserMessageCount      int
	AssistantMessageCount int
	CreatedAt             time.Time
	LastAccessedAt        time.Time
	Cwd                   string
	GitBranch             string
	Slug                  string
	Model                 string
	FirstUserMessage      string
	TotalInputTokens      int
	TotalOutputTokens     int
	TotalCostUSD          float64
}

// FirstUserMessageRuneCap bounds Metadata.FirstUserMessage to this many
// runes, appending "…" when the source text is longer. Truncation operates
// on codepoints, not bytes or display columns, so multi-byte text is never
// cut mid-rune.
const FirstUserMessageRuneCap = 200

// TruncateRunes returns s unchanged if it has at most cap runes, otherwise
// the first cap runes followed by "…".
func TruncateRunes(s string, cap int) string {
	runes := []rune(s)
	if len(runes) <= cap {
		return s
	}
	return string(runes[:cap]) + "…"
}
