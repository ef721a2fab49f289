package index

import (
	"database/sql"
	"time"
)

// Session is the index's row-projection of a transcript file, matching the
// Session entity and its invariants: file_path ends in session_id+".jsonl";
// message_count == user_message_count + assistant_message_count.
type Session struct {
	SessionID             string
	WorkingDirectory      string
	EncodedPath           string
	FilePath              string
	CreatedAt             time.Time
	LastAccessedAt        time.Time
	MessageCount          int
	UserMessageCount      int
	AssistantMessageCount int
	TotalInputTokens      int
	TotalOutputTokens     int
	TotalCostUSD          float64
	Model                 string
	GitBranch             string
	Slug                  string
	Title                 string
	FirstUserMessage      string
	IsDeleted             bool
	DeletedAt             *time.Time
}

func scanSession(scan func(dest ...any) error) (Session, error) {
	var (
		s         Session
		model     sql.NullString
		branch    sql.NullString
		slug      sql.NullString
		firstMsg  sql.NullString
		title     sql.NullString
		deletedAt sql.NullTime
		isDeleted int
	)
	err := scan(
		&s.SessionID, &s.EncodedPath, &s.WorkingDirectory, &s.FilePath,
		&s.CreatedAt, &s.LastAccessedAt,
		&s.MessageCount, &s.UserMessageCount, &s.AssistantMessageCount,
		&s.TotalInputTokens, &s.TotalOutputTokens, &s.TotalCostUSD,
		&model, &branch, &slug, &firstMsg,
		&isDeleted, &deletedAt, &title,
	)
	if err != nil {
		return Session{}, err
	}
	s.Model = model.String
	s.GitBranch = branch.String
	s.Slug = slug.String
	s.FirstUserMessage = firstMsg.String
	s.Title = title.String
	s.IsDeleted = isDeleted != 0
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return s, nil
}

const sessionColumns = `
	f.session_id, f.encoded_path, f.working_directory, f.file_path,
	f.created_at, f.last_accessed_at,
	f.message_count, f.user_message_count, f.assistant_message_count,
	f.total_input_tokens, f.total_output_tokens, f.total_cost_usd,
	f.model, f.git_branch, f.slug, f.first_user_message,
	f.is_deleted, f.deleted_at, COALESCE(t.title, '')`

const sessionFromJoin = `FROM files f LEFT JOIN titles t ON t.session_id = f.session_id`
