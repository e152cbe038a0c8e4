// Package session holds per-chat conversational state for the bot.
package session

import (
	"log/slog"
	"sync"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
)

// SearchState is the current search context for one chat.
type SearchState struct {
	Query   string
	Filters map[string]string
	Page    int
	Doctype crm.Doctype
}

// CachedDraft is the authoritative structured draft delivered by the
// workflow engine, preferred over message-text parsing on confirmation.
type CachedDraft struct {
	DraftID string
	Doctype crm.Doctype
	Record  draft.Record
}

// Session is the per-chat mutable state. Fields are written directly by
// command and callback handlers through Store.Mutate.
type Session struct {
	ActiveCRMAlias  string
	Search          SearchState
	SelectedDocName string
	CurrentDoctype  crm.Doctype
	Draft           *CachedDraft
}

// Store keeps sessions keyed by chat ID behind one mutex so ownership and
// locking discipline live in a single place instead of at every call site.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	logger   *slog.Logger
}

// NewStore creates an empty session store.
func NewStore(log *slog.Logger) *Store {
	return &Store{
		sessions: map[int64]*Session{},
		logger:   log.With(slog.String("service", "session")),
	}
}

// Mutate runs fn against the chat's session under the store lock, creating
// the session with defaults first when missing.
func (s *Store) Mutate(chatID int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.locked(chatID))
}

// Snapshot returns a copy of the chat's session with defaults filled.
// The copy shares no mutable state with the store.
func (s *Store) Snapshot(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.locked(chatID)

	out := *sess
	out.Search.Filters = make(map[string]string, len(sess.Search.Filters))
	for k, v := range sess.Search.Filters {
		out.Search.Filters[k] = v
	}
	if sess.Draft != nil {
		d := *sess.Draft
		out.Draft = &d
	}
	return out
}

// locked returns the live session for chatID, creating it if needed.
// Caller must hold the store lock.
func (s *Store) locked(chatID int64) *Session {
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &Session{}
		s.sessions[chatID] = sess
		s.logger.Debug("session created", slog.Int64("chat_id", chatID))
	}
	normalize(sess)
	return sess
}

// normalize fills defaults for any missing sub-structure so callers never
// see a zero search state or an unknown doctype.
func normalize(sess *Session) {
	if !sess.CurrentDoctype.Valid() {
		sess.CurrentDoctype = crm.DoctypeLead
	}
	if sess.Search.Filters == nil {
		sess.Search.Filters = map[string]string{}
	}
	if sess.Search.Page < 1 {
		sess.Search.Page = 1
	}
	if !sess.Search.Doctype.Valid() {
		sess.Search.Doctype = sess.CurrentDoctype
	}
}

// ResetSearch overwrites the chat's search context and resets the page to 1.
func (s *Store) ResetSearch(chatID int64, query string, filters map[string]string, doctype crm.Doctype) {
	s.Mutate(chatID, func(sess *Session) {
		if filters == nil {
			filters = map[string]string{}
		}
		sess.Search = SearchState{
			Query:   query,
			Filters: filters,
			Page:    1,
			Doctype: doctype,
		}
	})
}

// TurnPage moves the chat's search page by delta, never below 1, and
// returns the resulting page.
func (s *Store) TurnPage(chatID int64, delta int) int {
	page := 1
	s.Mutate(chatID, func(sess *Session) {
		sess.Search.Page += delta
		if sess.Search.Page < 1 {
			sess.Search.Page = 1
		}
		page = sess.Search.Page
	})
	return page
}
