package sessionsvc

import (
	"context"

	"github.com/zjrosen/transcriptdex/internal/index"
)

// SearchResult pairs an index search hit's matches with the hydrated
// Session it belongs to (index.Search already hydrates Session, so this is
// currently a direct alias kept distinct for callers that may want to
// attach cold-path fallback results later).
type SearchResult = index.SearchResult

// SearchSessions calls the index's FTS search and returns its hydrated
// hits. If the FTS query itself is malformed, falls back to a literal,
// case-sensitive substring scan across every live session's full message
// bodies, for callers that want semantics the FTS tokenizer doesn't provide.
func (s *Service) SearchSessions(ctx context.Context, query string, opts index.SearchOptions) ([]SearchResult, error) {
	results, err := s.store.Search(ctx, query, opts)
	if err == nil {
		return results, nil
	}

	return s.store.SubstringSearch(ctx, query, opts)
}
