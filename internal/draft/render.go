package draft

import (
	"sort"
	"strings"
)

// Render produces the bullet-point confirmation body for a record. The
// output is the exact grammar ParseMessage reads back: flat fields first in
// sorted key order, then Tasks and Notes sections with one indented
// sub-bullet per item.
func Render(record Record) string {
	var b strings.Builder

	keys := make([]string, 0, len(record.Fields))
	for key := range record.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString("• ")
		b.WriteString(titleKey(key))
		b.WriteString(": ")
		b.WriteString(record.Fields[key])
		b.WriteString("\n")
	}

	writeSection(&b, "Tasks", record.Tasks)
	writeSection(&b, "Notes", record.Notes)

	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, label string, items []map[string]string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("• ")
	b.WriteString(label)
	b.WriteString(":\n")
	for _, item := range items {
		b.WriteString("   - ")
		b.WriteString(renderItem(item))
		b.WriteString("\n")
	}
}

// renderItem joins item pairs as "key: value" comma segments, known keys
// first so a task reads naturally (title, description, due_date, content).
func renderItem(item map[string]string) string {
	order := []string{"title", "description", "due_date", "content", "text"}
	seen := map[string]bool{}
	var segments []string

	for _, key := range order {
		if value, ok := item[key]; ok {
			if key == "text" {
				segments = append(segments, value)
			} else {
				segments = append(segments, key+": "+value)
			}
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(item))
	for key := range item {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		segments = append(segments, key+": "+item[key])
	}

	return strings.Join(segments, ", ")
}

// titleKey converts a snake_case field key back to the rendered
// "Title Case" form, the inverse of normalizeKey.
func titleKey(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
