package jsonl

import (
	"github.com/zjrosen/transcriptdex/internal/transcript"
)

// deriveMetadata computes the Metadata summary from a decoded message
// sequence, per the field derivation rules:
//   - counts include only user|assistant types; message_count is always
//     exactly user_message_count + assistant_message_count
//   - created_at/last_accessed_at span the earliest/latest counted message
//   - cwd/git_branch/slug/model come from the first record supplying each,
//     preferring assistant records for model
//   - first_user_message is the text of the first user message, rune-capped
//   - token totals sum over assistant messages (summary messages are not
//     counted toward tokens, matching the upstream producer's behavior);
//     total_cost_usd sums cost_usd over every message that carries it
func deriveMetadata(messages []transcript.Message) transcript.Metadata {
	var md transcript.Metadata

	var (
		haveCreated  bool
		sawFirstUser bool
		modelFromAssistant bool
	)

	for _, m := range messages {
		if m.Type.counted() {
			md.MessageCount++
			switch m.Type {
			case transcript.TypeUser:
				md.UserMessageCount++
			case transcript.TypeAssistant:
				md.AssistantMessageCount++
			}

			if !haveCreated || m.Timestamp.Before(md.CreatedAt) {
				md.CreatedAt = m.Timestamp
				haveCreated = true
			}
			if m.Timestamp.After(md.LastAccessedAt) {
				md.LastAccessedAt = m.Timestamp
			}
		}

		if md.Cwd == "" && m.Cwd != "" {
			md.Cwd = m.Cwd
		}
		if md.GitBranch == "" && m.GitBranch != "" {
			md.GitBranch = m.GitBranch
		}
		if md.Slug == "" && m.Slug != "" {
			md.Slug = m.Slug
		}
		if m.Model != "" {
			if m.Type == transcript.TypeAssistant && !modelFromAssistant {
				md.Model = m.Model
				modelFromAssistant = true
			} else if md.Model == "" {
				md.Model = m.Model
			}
		}

		if !sawFirstUser && m.Type == transcript.TypeUser {
			md.FirstUserMessage = transcript.TruncateRunes(m.TextBody, transcript.FirstUserMessageRuneCap)
			sawFirstUser = true
		}

		if m.Type == transcript.TypeAssistant && m.Usage != nil {
			md.TotalInputTokens += m.Usage.InputTokens + m.Usage.CacheCreationInputTokens
			md.TotalOutputTokens += m.Usage.OutputTokens
		}
		if m.CostUSD != nil {
			md.TotalCostUSD += *m.CostUSD
		}
	}

	return md
}
