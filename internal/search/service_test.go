package search

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/session"
)

type listCall struct {
	doctype crm.Doctype
	filters []crm.Filter
	fields  []string
	limit   int
	start   int
}

type mockLister struct {
	calls   []listCall
	results [][]crm.ListItem
	err     error
}

func (m *mockLister) List(_ context.Context, _ crm.Connection, doctype crm.Doctype, filters []crm.Filter, fields []string, limit, start int) ([]crm.ListItem, error) {
	m.calls = append(m.calls, listCall{doctype: doctype, filters: filters, fields: fields, limit: limit, start: start})
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) == 0 {
		return nil, nil
	}
	next := m.results[0]
	m.results = m.results[1:]
	return next, nil
}

type mockResolver struct {
	conn crm.Connection
	ok   bool
}

func (m *mockResolver) ResolveActive(int64) (crm.Connection, bool) {
	return m.conn, m.ok
}

func leads(names ...string) []crm.ListItem {
	out := make([]crm.ListItem, 0, len(names))
	for _, name := range names {
		out = append(out, crm.ListItem{Name: name, Organization: "Acme", Modified: "2024-01-02 10:00:00"})
	}
	return out
}

func newTestService(lister *mockLister, resolver *mockResolver) (*Service, *session.Store) {
	sessions := session.NewStore(slog.Default())
	return NewService(slog.Default(), sessions, lister, resolver), sessions
}

func TestRunRequiresCRM(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&mockLister{}, &mockResolver{})
	_, err := svc.Run(context.Background(), 1, "acme", crm.DoctypeLead, true)
	if !errors.Is(err, ErrNoCRM) {
		t.Fatalf("expected ErrNoCRM, got %v", err)
	}
}

func TestRunRequiresQuery(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&mockLister{}, &mockResolver{ok: true})
	_, err := svc.Run(context.Background(), 1, "", crm.DoctypeLead, false)
	if !errors.Is(err, ErrNoQuery) {
		t.Fatalf("expected ErrNoQuery, got %v", err)
	}
}

func TestRunFullPageHasMore(t *testing.T) {
	t.Parallel()

	lister := &mockLister{results: [][]crm.ListItem{
		leads("L1", "L2", "L3", "L4", "L5", "L6"),
		nil,
	}}
	svc, _ := newTestService(lister, &mockResolver{ok: true})

	page, err := svc.Run(context.Background(), 1, "Acme", crm.DoctypeLead, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(page.Items) != PageSize {
		t.Fatalf("expected %d rows, got %d", PageSize, len(page.Items))
	}
	if !page.HasMore {
		t.Fatal("full page must offer More")
	}
	if page.HasPrev {
		t.Fatal("page 1 must not offer Previous")
	}
	if page.Number != 1 || page.Start != 0 {
		t.Fatalf("unexpected paging: %+v", page)
	}
}

func TestRunSecondPageOffsets(t *testing.T) {
	t.Parallel()

	lister := &mockLister{results: [][]crm.ListItem{
		leads("L1", "L2", "L3", "L4", "L5"),
		nil,
		leads("L6", "L7"),
		nil,
	}}
	svc, sessions := newTestService(lister, &mockResolver{ok: true})

	if _, err := svc.Run(context.Background(), 1, "Acme", crm.DoctypeLead, true); err != nil {
		t.Fatalf("Run page 1: %v", err)
	}
	sessions.TurnPage(1, 1)

	page, err := svc.Run(context.Background(), 1, "", crm.DoctypeLead, false)
	if err != nil {
		t.Fatalf("Run page 2: %v", err)
	}
	if page.Number != 2 || page.Start != PageSize {
		t.Fatalf("expected page 2 with offset 5, got %+v", page)
	}
	if !page.HasPrev || page.HasMore {
		t.Fatalf("expected Previous only, got HasPrev=%v HasMore=%v", page.HasPrev, page.HasMore)
	}
	// Both page-2 queries must carry the new offset.
	for _, call := range lister.calls[2:] {
		if call.start != PageSize {
			t.Fatalf("expected limit_start=5, got %d", call.start)
		}
	}
}

func TestRunMergesAndDedupes(t *testing.T) {
	t.Parallel()

	lister := &mockLister{results: [][]crm.ListItem{
		leads("L1", "L2", "L3"),
		leads("L2", "L4", "L1", "L5", "L6", "L7"),
	}}
	svc, _ := newTestService(lister, &mockResolver{ok: true})

	page, err := svc.Run(context.Background(), 1, "Acme", crm.DoctypeLead, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		got = append(got, item.Name)
	}
	want := []string{"L1", "L2", "L3", "L4", "L5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected first-seen-order dedupe %v, got %v", want, got)
	}
}

func TestRunAppliesFilters(t *testing.T) {
	t.Parallel()

	lister := &mockLister{}
	svc, _ := newTestService(lister, &mockResolver{ok: true})

	if _, err := svc.Run(context.Background(), 1, "Acme filter:owner:glenn,status:Open", crm.DoctypeLead, true); err != nil {
		t.Fatalf("Run: %v", err)
	}

	orgCall := lister.calls[0]
	want := []crm.Filter{
		crm.Like("organization", "Acme"),
		crm.Eq("owner", "glenn"),
		crm.Eq("status", "Open"),
	}
	if !reflect.DeepEqual(orgCall.filters, want) {
		t.Fatalf("unexpected org filters: %v", orgCall.filters)
	}
	// The name query carries only the name match.
	nameCall := lister.calls[1]
	if !reflect.DeepEqual(nameCall.filters, []crm.Filter{crm.Like("first_name", "Acme")}) {
		t.Fatalf("unexpected name filters: %v", nameCall.filters)
	}
}

func TestRunDealFieldsAndNameMatch(t *testing.T) {
	t.Parallel()

	lister := &mockLister{}
	svc, _ := newTestService(lister, &mockResolver{ok: true})

	if _, err := svc.Run(context.Background(), 1, "Acme", crm.DoctypeDeal, true); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, call := range lister.calls {
		for _, field := range call.fields {
			if field == "first_name" || field == "last_name" {
				t.Fatalf("deal query must not request name fields: %v", call.fields)
			}
		}
	}
	nameCall := lister.calls[1]
	if !reflect.DeepEqual(nameCall.filters, []crm.Filter{crm.Like("name", "Acme")}) {
		t.Fatalf("deal name query must match the identifier: %v", nameCall.filters)
	}
}

func TestRunSurfacesListError(t *testing.T) {
	t.Parallel()

	lister := &mockLister{err: errors.New("boom")}
	svc, _ := newTestService(lister, &mockResolver{ok: true})

	if _, err := svc.Run(context.Background(), 1, "Acme", crm.DoctypeLead, true); err == nil {
		t.Fatal("expected error from CRM call")
	}
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input       string
		wantQuery   string
		wantFilters map[string]string
	}{
		{"Acme", "Acme", map[string]string{}},
		{"Acme filter:owner:glenn,status:Open", "Acme", map[string]string{"owner": "glenn", "status": "Open"}},
		{"Acme filter:owner:glenn,color:red", "Acme", map[string]string{"owner": "glenn"}},
		{"Acme filter:", "Acme", map[string]string{}},
		{"filter:status:Open", "", map[string]string{"status": "Open"}},
	}
	for _, tt := range tests {
		query, filters := ParseQuery(tt.input)
		if query != tt.wantQuery {
			t.Errorf("ParseQuery(%q) query = %q, want %q", tt.input, query, tt.wantQuery)
		}
		if !reflect.DeepEqual(filters, tt.wantFilters) {
			t.Errorf("ParseQuery(%q) filters = %v, want %v", tt.input, filters, tt.wantFilters)
		}
	}
}

func TestPageRendering(t *testing.T) {
	t.Parallel()

	page := Page{
		Doctype: crm.DoctypeLead,
		Number:  2,
		Start:   5,
		Items: []crm.ListItem{
			{Name: "CRM-LEAD-0006", Organization: "Acme", FirstName: "John", LastName: "Doe", Status: "Open", Owner: "glenn", Modified: "2024-01-02 10:00:00"},
			{Name: "CRM-LEAD-0007"},
		},
	}

	if got := page.Header(); got != "Page 2 | Found 2 leads:" {
		t.Errorf("unexpected header %q", got)
	}
	want := "*[6] CRM-LEAD-0006* | Acme — John Doe | Open | Owner: glenn | 2024-01-02"
	if got := page.Line(0); got != want {
		t.Errorf("unexpected line:\n got %q\nwant %q", got, want)
	}
	if got := page.Line(1); !strings.Contains(got, "[7] CRM-LEAD-0007* | — — — | — | Owner: — |") {
		t.Errorf("empty fields must render as dashes: %q", got)
	}
}
