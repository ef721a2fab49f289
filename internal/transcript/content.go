package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Content is the decoded form of a Message's "content" field, which the
// upstream producer writes as either a bare JSON string or an array of typed
// blocks. Exactly one of Text or Blocks is populated for a given message;
// consumers pattern-match on which, rather than holding an interface{} and
// type-switching at every use site.
type Content struct {
	Text   string
	Blocks []Block
}

// Block is one element of an array-form Content. Only Type "text" carries a
// Text payload that this package extracts; other block types ("tool_use",
// "tool_result", "thinking", ...) are preserved structurally but ignored by
// text extraction.
type Block struct {
	Type string
	Text string
}

// UnmarshalJSON decodes a content field that may be a JSON string or an
// array of block objects.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*c = Content{}
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{Text: s}
		return nil
	}

	var raw []rawBlock
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	blocks := make([]Block, 0, len(raw))
	for _, rb := range raw {
		blocks = append(blocks, Block{Type: rb.Type, Text: rb.Text})
	}
	*c = Content{Blocks: blocks}
	return nil
}

// MarshalJSON re-encodes Content in whichever shape it was decoded from.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Blocks == nil {
		return json.Marshal(c.Text)
	}
	raw := make([]rawBlock, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		raw = append(raw, rawBlock{Type: b.Type, Text: b.Text})
	}
	return json.Marshal(raw)
}

type rawBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ExtractText concatenates the text of each "text" block with newlines when
// Content is array-form, or returns Text directly when it is string-form.
// Non-text blocks (tool_use, tool_result, thinking, ...) are ignored.
func (c Content) ExtractText() string {
	if c.Blocks == nil {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
