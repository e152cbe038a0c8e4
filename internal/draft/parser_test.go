package draft

import (
	"reflect"
	"testing"
)

func TestParseMessageFlatFields(t *testing.T) {
	t.Parallel()

	text := "*New lead draft:*\n\n• Organization: Acme\n• First Name: John\n• Status: Open\n\nConfirm?"
	record := ParseMessage(text)

	want := map[string]string{
		"organization": "Acme",
		"first_name":   "John",
		"status":       "Open",
	}
	if !reflect.DeepEqual(record.Fields, want) {
		t.Fatalf("unexpected fields: %#v", record.Fields)
	}
	if len(record.Tasks) != 0 || len(record.Notes) != 0 {
		t.Fatalf("expected no nested items: %+v", record)
	}
}

func TestParseMessageSections(t *testing.T) {
	t.Parallel()

	text := "• Organization: Acme\n" +
		"• Tasks:\n" +
		"   - title: Call, due_date: 2024-01-01\n" +
		"   - title: Email, follow up later\n" +
		"• Notes:\n" +
		"   - title: Intro, content: met at expo\n" +
		"• Status: Open\n"
	record := ParseMessage(text)

	if len(record.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(record.Tasks))
	}
	if record.Tasks[0]["title"] != "Call" || record.Tasks[0]["due_date"] != "2024-01-01" {
		t.Fatalf("unexpected first task: %#v", record.Tasks[0])
	}
	if record.Tasks[1]["text"] != "follow up later" {
		t.Fatalf("colon-less segment must land under text: %#v", record.Tasks[1])
	}
	if len(record.Notes) != 1 || record.Notes[0]["content"] != "met at expo" {
		t.Fatalf("unexpected notes: %#v", record.Notes)
	}
	// The Status bullet after the Notes section is a flat field again.
	if record.Fields["status"] != "Open" {
		t.Fatalf("expected status field, got %#v", record.Fields)
	}
}

func TestParseMessageStripsMarkdownAndCR(t *testing.T) {
	t.Parallel()

	record := ParseMessage("• *Organization*: Acme\r\n• Email: a@b.c\r")
	if record.Fields["organization"] != "Acme" {
		t.Fatalf("expected markdown-stripped key: %#v", record.Fields)
	}
	if record.Fields["email"] != "a@b.c" {
		t.Fatalf("expected CR stripped from value: %#v", record.Fields)
	}
}

func TestParseMessageEmptyInput(t *testing.T) {
	t.Parallel()

	record := ParseMessage("nothing matches here\njust prose")
	if !record.IsEmpty() {
		t.Fatalf("expected empty record, got %+v", record)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Parallel()

	original := Record{
		Fields: map[string]string{
			"organization": "Acme",
			"first_name":   "John",
			"email":        "john@acme.io",
		},
		Tasks: []map[string]string{
			{"title": "Call", "due_date": "2024-01-01"},
			{"title": "Demo", "description": "show dashboard"},
		},
		Notes: []map[string]string{
			{"title": "Intro", "content": "met at expo"},
		},
	}

	parsed := ParseMessage(Render(original))

	if !reflect.DeepEqual(parsed.Fields, original.Fields) {
		t.Errorf("fields diverged: %#v", parsed.Fields)
	}
	if !reflect.DeepEqual(parsed.Tasks, original.Tasks) {
		t.Errorf("tasks diverged: %#v", parsed.Tasks)
	}
	if !reflect.DeepEqual(parsed.Notes, original.Notes) {
		t.Errorf("notes diverged: %#v", parsed.Notes)
	}
}

func TestParseOrRetrievePrefersCachedDraft(t *testing.T) {
	t.Parallel()

	cached := Record{
		Fields: map[string]string{"organization": "Cached Corp"},
		Tasks:  []map[string]string{{"title": "Call"}},
	}
	// The message text disagrees with the cache; the cache must win and the
	// text must not be consulted at all.
	got := ParseOrRetrieve("draft-1", &cached, "draft-1", "• Organization: Stale Text")

	if !reflect.DeepEqual(got, cached) {
		t.Fatalf("expected cached record verbatim, got %+v", got)
	}
}

func TestParseOrRetrieveFallsBackOnMismatch(t *testing.T) {
	t.Parallel()

	cached := Record{Fields: map[string]string{"organization": "Cached Corp"}}

	got := ParseOrRetrieve("draft-1", &cached, "draft-2", "• Organization: From Text")
	if got.Fields["organization"] != "From Text" {
		t.Fatalf("expected text parse on draft ID mismatch, got %+v", got)
	}

	got = ParseOrRetrieve("", nil, "draft-2", "• Organization: From Text")
	if got.Fields["organization"] != "From Text" {
		t.Fatalf("expected text parse without cache, got %+v", got)
	}
}
