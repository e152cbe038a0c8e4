package crm

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists connections in the crm_connections table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed connection store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// LoadAll reads every persisted connection grouped by chat.
func (s *PGStore) LoadAll(ctx context.Context) (map[int64][]Connection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chat_id, alias, url, api_key, api_secret FROM crm_connections ORDER BY chat_id, alias`)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	out := map[int64][]Connection{}
	for rows.Next() {
		var chatID int64
		var conn Connection
		if err := rows.Scan(&chatID, &conn.Alias, &conn.URL, &conn.APIKey, &conn.APISecret); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out[chatID] = append(out[chatID], conn)
	}
	return out, rows.Err()
}

// SaveChat replaces the chat's persisted connections in one transaction.
func (s *PGStore) SaveChat(ctx context.Context, chatID int64, conns []Connection) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM crm_connections WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("clear connections: %w", err)
	}
	for _, conn := range conns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO crm_connections (chat_id, alias, url, api_key, api_secret) VALUES ($1, $2, $3, $4, $5)`,
			chatID, conn.Alias, conn.URL, conn.APIKey, conn.APISecret,
		); err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
	}
	return tx.Commit(ctx)
}
