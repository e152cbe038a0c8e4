// Package search runs paginated CRM searches and renders result pages.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/session"
)

// PageSize is the fixed result page size.
const PageSize = 5

// Sentinel outcomes the bot layer turns into user-facing prompts.
var (
	ErrNoCRM   = errors.New("no active crm connection")
	ErrNoQuery = errors.New("no search query in session")
)

// Lister is the slice of the CRM client the search engine needs.
type Lister interface {
	List(ctx context.Context, conn crm.Connection, doctype crm.Doctype, filters []crm.Filter, fields []string, limit, start int) ([]crm.ListItem, error)
}

// ConnectionResolver resolves a chat's active CRM connection.
type ConnectionResolver interface {
	ResolveActive(chatID int64) (crm.Connection, bool)
}

// Service executes the dual-query search and pagination flow.
type Service struct {
	sessions *session.Store
	crm      Lister
	registry ConnectionResolver
	logger   *slog.Logger
}

// NewService creates the search service.
func NewService(log *slog.Logger, sessions *session.Store, lister Lister, registry ConnectionResolver) *Service {
	return &Service{
		sessions: sessions,
		crm:      lister,
		registry: registry,
		logger:   log.With(slog.String("service", "search")),
	}
}

// Run executes a search for the chat. When explicit is true the input is
// parsed for query and filters, overwriting the session search state and
// resetting the page to 1; otherwise the stored query, filters, page, and
// doctype are reused (this is how More/Previous re-run the same search).
func (s *Service) Run(ctx context.Context, chatID int64, input string, doctype crm.Doctype, explicit bool) (Page, error) {
	conn, ok := s.registry.ResolveActive(chatID)
	if !ok {
		return Page{}, ErrNoCRM
	}

	if explicit {
		query, filters := ParseQuery(input)
		s.sessions.ResetSearch(chatID, query, filters, doctype)
	}

	state := s.sessions.Snapshot(chatID).Search
	if strings.TrimSpace(state.Query) == "" {
		return Page{}, ErrNoQuery
	}
	start := (state.Page - 1) * PageSize

	s.logger.Info("search",
		slog.Int64("chat_id", chatID),
		slog.String("doctype", string(state.Doctype)),
		slog.String("query", state.Query),
		slog.Int("page", state.Page),
		slog.Any("filters", state.Filters),
	)

	orgFilters := []crm.Filter{crm.Like("organization", state.Query)}
	if owner := state.Filters["owner"]; owner != "" {
		orgFilters = append(orgFilters, crm.Eq("owner", owner))
	}
	if status := state.Filters["status"]; status != "" {
		orgFilters = append(orgFilters, crm.Eq("status", status))
	}

	fields := fieldsFor(state.Doctype)

	orgItems, err := s.crm.List(ctx, conn, state.Doctype, orgFilters, fields, PageSize, start)
	if err != nil {
		return Page{}, fmt.Errorf("organization query: %w", err)
	}
	nameItems, err := s.crm.List(ctx, conn, state.Doctype, []crm.Filter{nameFilter(state.Doctype, state.Query)}, fields, PageSize, start)
	if err != nil {
		return Page{}, fmt.Errorf("name query: %w", err)
	}

	items := dedupe(orgItems, nameItems, PageSize)

	return Page{
		Doctype: state.Doctype,
		Query:   state.Query,
		Number:  state.Page,
		Start:   start,
		Items:   items,
		HasPrev: state.Page > 1,
		HasMore: len(items) == PageSize,
	}, nil
}

// fieldsFor returns the field list to fetch. Deal records have no separate
// first/last name fields; requesting them trips a field-not-found error on
// the live API.
func fieldsFor(doctype crm.Doctype) []string {
	if doctype == crm.DoctypeDeal {
		return []string{"name", "organization", "status", "owner", "modified"}
	}
	return []string{"name", "organization", "first_name", "last_name", "status", "owner", "modified"}
}

// nameFilter matches on first_name for leads and on the record identifier
// for deals, which carry no separate display field.
func nameFilter(doctype crm.Doctype, query string) crm.Filter {
	if doctype == crm.DoctypeDeal {
		return crm.Like("name", query)
	}
	return crm.Like("first_name", query)
}

// dedupe merges result sets preserving first-seen order, dropping duplicate
// identifiers, and truncating to max entries.
func dedupe(a, b []crm.ListItem, max int) []crm.ListItem {
	seen := map[string]bool{}
	out := make([]crm.ListItem, 0, max)
	for _, item := range append(append([]crm.ListItem{}, a...), b...) {
		if seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}

// ParseQuery splits a raw search input on the "filter:" marker. Text before
// the marker is the free query; text after is comma-separated key:value
// pairs, of which only owner and status are recognized.
func ParseQuery(input string) (string, map[string]string) {
	filters := map[string]string{}
	query := strings.TrimSpace(input)

	marker := strings.Index(input, "filter:")
	if marker < 0 {
		return query, filters
	}

	query = strings.TrimSpace(input[:marker])
	for _, pair := range strings.Split(input[marker+len("filter:"):], ",") {
		key, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch key {
		case "owner", "status":
			filters[key] = value
		}
	}
	return query, filters
}
