package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConnectionStore persists per-chat CRM connection records. The in-memory
// registry remains the source of truth; the store is read once at startup
// and rewritten on every mutation.
type ConnectionStore interface {
	LoadAll(ctx context.Context) (map[int64][]Connection, error)
	SaveChat(ctx context.Context, chatID int64, conns []Connection) error
}

// FileStore keeps connections in one flat JSON file, read fully into memory
// and rewritten fully on every save. No partial-write safety beyond a
// rename from a temp file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed connection store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type fileRecord struct {
	ChatID      int64        `json:"chatId"`
	Connections []Connection `json:"connections"`
}

// LoadAll reads the whole file; a missing file yields an empty map.
func (s *FileStore) LoadAll(_ context.Context) (map[int64][]Connection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int64][]Connection{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}

	out := make(map[int64][]Connection, len(records))
	for _, rec := range records {
		out[rec.ChatID] = rec.Connections
	}
	return out, nil
}

// SaveChat merges the chat's connections into the file content and rewrites
// the whole file.
func (s *FileStore) SaveChat(ctx context.Context, chatID int64, conns []Connection) error {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(conns) == 0 {
		delete(all, chatID)
	} else {
		all[chatID] = conns
	}

	records := make([]fileRecord, 0, len(all))
	for id, list := range all {
		records = append(records, fileRecord{ChatID: id, Connections: list})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
