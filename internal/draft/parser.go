// Package draft reconstructs structured draft records. The authoritative
// path is a cached record delivered by the workflow engine; parsing the
// bot's own rendered confirmation message is the fallback for sessions
// that lost the cache (e.g. a process restart between render and confirm).
package draft

import (
	"regexp"
	"strings"
)

var (
	reBullet    = regexp.MustCompile(`^• (.+?): ?(.*)$`)
	reSubBullet = regexp.MustCompile(`^\s+[-◦] (.+)$`)
)

// ParseOrRetrieve returns the cached record verbatim when its ID matches
// draftID; otherwise it falls back to parsing the rendered message text.
func ParseOrRetrieve(cachedID string, cached *Record, draftID, messageText string) Record {
	if cached != nil && cachedID != "" && cachedID == draftID {
		return *cached
	}
	return ParseMessage(messageText)
}

// ParseMessage scans a rendered confirmation message back into a Record.
//
// A top-level bullet "• Key: Value" stores Key→Value in the flat field map
// (keys lower-cased, spaces to underscores) unless the key is literally
// "tasks" or "notes", which opens the corresponding section. An indented
// sub-bullet inside a section is split on commas into key: value pairs;
// comma segments without a colon land under a generic "text" key. Lines
// matching neither pattern are ignored. This reconstruction is lossy and
// tracks the render template; no parse-success validation happens here.
func ParseMessage(text string) Record {
	record := NewRecord()
	section := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.ReplaceAll(raw, "*", "")
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := reBullet.FindStringSubmatch(strings.TrimLeft(line, " ")); m != nil && strings.HasPrefix(strings.TrimSpace(line), "•") {
			key := normalizeKey(m[1])
			switch key {
			case "tasks", "notes":
				section = key
			default:
				record.Fields[key] = strings.TrimSpace(m[2])
				section = ""
			}
			continue
		}

		if m := reSubBullet.FindStringSubmatch(line); m != nil && section != "" {
			item := parseSubBullet(m[1])
			switch section {
			case "tasks":
				record.Tasks = append(record.Tasks, item)
			case "notes":
				record.Notes = append(record.Notes, item)
			}
		}
	}
	return record
}

// parseSubBullet splits "title: Call, due_date: 2024-01-01" into a key/value
// map; segments without a colon go under "text".
func parseSubBullet(body string) map[string]string {
	item := map[string]string{}
	for _, segment := range strings.Split(body, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, ":")
		if !found {
			if existing, ok := item["text"]; ok {
				item["text"] = existing + ", " + segment
			} else {
				item["text"] = segment
			}
			continue
		}
		item[normalizeKey(key)] = strings.TrimSpace(value)
	}
	return item
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	return strings.ReplaceAll(key, " ", "_")
}
