package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SearchOptions bounds a Search call.
type SearchOptions struct {
	MaxResults           int // default 20
	MaxMatchesPerSession int // default 3
}

// SearchMatch is one matching message within a session, with the matched
// terms delimited by >>> <<< markers in Snippet.
type SearchMatch struct {
	Ordinal int
	Type    string
	Snippet string
}

// SearchResult is one session's aggregate hit for a query.
type SearchResult struct {
	Session    Session
	Matches    []SearchMatch
	MatchCount int
}

const (
	defaultMaxResults           = 20
	defaultMaxMatchesPerSession = 3
	snippetMarkLeft             = ">>>"
	snippetMarkRight            = "<<<"
)

// Search issues the FTS query against messages.text_body, ranks by bm25(),
// then joins to files for session metadata in a second pass — bm25() is
// only valid in the immediate FTS query, never nested under a CTE or
// subquery, per the store's dialect restriction. Results are ordered by
// each session's single best (most negative) bm25 message score; scores of
// a session's other matching messages are not combined into its rank.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrBadQuery)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxMatchesPerSession <= 0 {
		opts.MaxMatchesPerSession = defaultMaxMatchesPerSession
	}

	// Phase 1: the FTS query itself, with bm25() in the immediate SELECT.
	// messages_fts is external-content (content='messages'), so rowid joins
	// back to messages for session_id/ordinal/type/text_body.
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.session_id, m.ordinal, m.type, m.text_body,
		       bm25(messages_fts) AS rank,
		       snippet(messages_fts, 0, ?, ?, '…', 12) AS snip
		FROM messages_fts
		JOIN messages m ON m.rowid = messages_fts.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank
	`, snippetMarkLeft, snippetMarkRight, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	defer func() { _ = rows.Close() }()

	type matchRow struct {
		sessionID string
		match     SearchMatch
		rank      float64
	}
	bySession := map[string][]matchRow{}
	order := []string{}

	for rows.Next() {
		var mr matchRow
		var ordinal int
		var typ, text, snip string
		if err := rows.Scan(&mr.sessionID, &ordinal, &typ, &text, &mr.rank, &snip); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		mr.match = SearchMatch{Ordinal: ordinal, Type: typ, Snippet: snip}
		if _, seen := bySession[mr.sessionID]; !seen {
			order = append(order, mr.sessionID)
		}
		bySession[mr.sessionID] = append(bySession[mr.sessionID], mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	if len(order) > opts.MaxResults {
		order = order[:opts.MaxResults]
	}

	// Phase 2: hydrate each hit session's metadata from files, after the FTS
	// query has fully completed.
	results := make([]SearchResult, 0, len(order))
	for _, sessionID := range order {
		sess, err := s.Get(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // session vanished from files between fts write and query; skip
			}
			return nil, err
		}

		matches := bySession[sessionID]
		n := opts.MaxMatchesPerSession
		if n > len(matches) {
			n = len(matches)
		}
		top := make([]SearchMatch, n)
		for i := 0; i < n; i++ {
			top[i] = matches[i].match
		}

		results = append(results, SearchResult{
			Session:    sess,
			Matches:    top,
			MatchCount: len(matches),
		})
	}

	return results, nil
}

// SubstringSearch scans every live session's stored message bodies for a
// literal, case-sensitive occurrence of query, for callers that need a
// fallback when the FTS tokenizer rejects the query outright. Unlike Search
// it does not rank results; sessions are returned in session_id order.
func (s *Store) SubstringSearch(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxMatchesPerSession <= 0 {
		opts.MaxMatchesPerSession = defaultMaxMatchesPerSession
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.session_id, m.ordinal, m.type, m.text_body
		FROM messages m
		JOIN files f ON f.session_id = m.session_id
		WHERE f.is_deleted = 0
		ORDER BY m.session_id, m.ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("querying messages for substring scan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type matchRow struct {
		sessionID string
		match     SearchMatch
	}
	bySession := map[string][]matchRow{}
	order := []string{}

	for rows.Next() {
		var sessionID, typ, text string
		var ordinal int
		if err := rows.Scan(&sessionID, &ordinal, &typ, &text); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		idx := strings.Index(text, query)
		if idx < 0 {
			continue
		}
		if _, seen := bySession[sessionID]; !seen {
			order = append(order, sessionID)
		}
		bySession[sessionID] = append(bySession[sessionID], matchRow{
			sessionID: sessionID,
			match:     SearchMatch{Ordinal: ordinal, Type: typ, Snippet: substringSnippet(text, idx, len(query))},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	if len(order) > opts.MaxResults {
		order = order[:opts.MaxResults]
	}

	results := make([]SearchResult, 0, len(order))
	for _, sessionID := range order {
		sess, err := s.Get(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}

		matches := bySession[sessionID]
		n := opts.MaxMatchesPerSession
		if n > len(matches) {
			n = len(matches)
		}
		top := make([]SearchMatch, n)
		for i := 0; i < n; i++ {
			top[i] = matches[i].match
		}

		results = append(results, SearchResult{
			Session:    sess,
			Matches:    top,
			MatchCount: len(matches),
		})
	}

	return results, nil
}

// substringSnippetContext bounds how much text surrounds a literal match in
// a fallback snippet, mirroring the FTS snippet()'s 12-token budget.
const substringSnippetContext = 40

// substringSnippet builds a >>> <<<-delimited excerpt around a literal match
// at byte offset idx in text, matching Search's marker convention.
func substringSnippet(text string, idx, matchLen int) string {
	start := idx - substringSnippetContext
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + substringSnippetContext
	if end > len(text) {
		end = len(text)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(text[start:idx])
	b.WriteString(snippetMarkLeft)
	b.WriteString(text[idx : idx+matchLen])
	b.WriteString(snippetMarkRight)
	b.WriteString(text[idx+matchLen : end])
	if end < len(text) {
		b.WriteString("…")
	}
	return b.String()
}
