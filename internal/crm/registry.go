package crm

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fr8labs/leadbot/internal/config"
)

// DefaultAlias names the connection assembled from the default CRM config
// when a chat never authenticated against an alias.
const DefaultAlias = "default"

type chatEntry struct {
	conn Connection
	auth authState
}

type chatState struct {
	activeAlias string
	crms        map[string]*chatEntry
}

// Registry resolves a chat's configured CRM aliases to connection details.
// Key material comes from the pre-provisioned alias table; user logins only
// unlock an alias, they never introduce new credentials.
type Registry struct {
	client          *Client
	store           ConnectionStore
	cfg             config.CRMConfig
	sessionDuration time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewRegistry builds the registry and loads persisted connections. Loaded
// entries start unauthenticated; users must /login again after a restart.
func NewRegistry(log *slog.Logger, client *Client, store ConnectionStore, cfg config.CRMConfig, sessionDuration time.Duration) (*Registry, error) {
	r := &Registry{
		client:          client,
		store:           store,
		cfg:             cfg,
		sessionDuration: sessionDuration,
		logger:          log.With(slog.String("service", "crm_registry")),
		now:             time.Now,
		chats:           map[int64]*chatState{},
	}

	if store != nil {
		persisted, err := store.LoadAll(context.Background())
		if err != nil {
			return nil, err
		}
		for chatID, conns := range persisted {
			state := r.chatLocked(chatID)
			for _, conn := range conns {
				state.crms[conn.Alias] = &chatEntry{conn: conn}
			}
		}
	}
	return r, nil
}

// chatLocked returns the chat state, creating it if needed. The caller must
// hold r.mu except during construction.
func (r *Registry) chatLocked(chatID int64) *chatState {
	state, ok := r.chats[chatID]
	if !ok {
		state = &chatState{crms: map[string]*chatEntry{}}
		r.chats[chatID] = state
	}
	return state
}

// ValidateAlias reports whether alias exists in the pre-provisioned table,
// so arbitrary aliases cannot be probed through /login.
func (r *Registry) ValidateAlias(alias string) bool {
	_, ok := r.cfg.Aliases[alias]
	return ok
}

// AvailableAliases lists the pre-provisioned alias names, sorted.
func (r *Registry) AvailableAliases() []string {
	names := make([]string, 0, len(r.cfg.Aliases))
	for name := range r.cfg.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// keysFor resolves the alias's connection details from the static table.
// Missing key material is treated as an unconfigured alias.
func (r *Registry) keysFor(alias string) (Connection, bool) {
	entry, ok := r.cfg.Aliases[alias]
	if !ok {
		return Connection{}, false
	}
	if entry.APIKey == "" || entry.APISecret == "" {
		r.logger.Warn("api keys not configured for alias", slog.String("alias", alias))
		return Connection{}, false
	}
	return Connection{
		Alias:     alias,
		URL:       entry.URL,
		APIKey:    entry.APIKey,
		APISecret: entry.APISecret,
	}, true
}

// Authenticate logs the user in against the alias's CRM instance. On
// success the alias is unlocked for the chat, becomes active if no alias
// was active yet, and the chat's connections are persisted.
func (r *Registry) Authenticate(ctx context.Context, chatID int64, alias, username, password string) bool {
	if !r.ValidateAlias(alias) {
		r.logger.Warn("unknown alias", slog.Int64("chat_id", chatID), slog.String("alias", alias))
		return false
	}
	conn, ok := r.keysFor(alias)
	if !ok {
		return false
	}
	if !r.client.Login(ctx, conn.URL, username, password) {
		return false
	}

	r.mu.Lock()
	state := r.chatLocked(chatID)
	state.crms[alias] = &chatEntry{
		conn: conn,
		auth: authState{Authenticated: true, AuthAt: r.now()},
	}
	if state.activeAlias == "" {
		state.activeAlias = alias
	}
	conns := connectionsLocked(state)
	r.mu.Unlock()

	r.persist(ctx, chatID, conns)
	r.logger.Info("authenticated", slog.Int64("chat_id", chatID), slog.String("alias", alias))
	return true
}

// UseCustomURL registers an ad-hoc CRM URL for the chat using the default
// key material and makes it active. This is the legacy /setcrm <URL> path;
// it fails when no default API keys are configured.
func (r *Registry) UseCustomURL(ctx context.Context, chatID int64, url string) bool {
	if r.cfg.APIKey == "" || r.cfg.APISecret == "" {
		r.logger.Warn("custom url rejected, no default api keys", slog.Int64("chat_id", chatID))
		return false
	}

	r.mu.Lock()
	state := r.chatLocked(chatID)
	state.crms["custom"] = &chatEntry{
		conn: Connection{
			Alias:     "custom",
			URL:       url,
			APIKey:    r.cfg.APIKey,
			APISecret: r.cfg.APISecret,
		},
		auth: authState{Authenticated: true, AuthAt: r.now()},
	}
	state.activeAlias = "custom"
	conns := connectionsLocked(state)
	r.mu.Unlock()

	r.persist(ctx, chatID, conns)
	return true
}

// SetActive selects the chat's active alias; the alias must already be
// unlocked for the chat.
func (r *Registry) SetActive(chatID int64, alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.chatLocked(chatID)
	if _, ok := state.crms[alias]; !ok {
		return false
	}
	state.activeAlias = alias
	return true
}

// ActiveAlias returns the chat's currently active alias, or "".
func (r *Registry) ActiveAlias(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chatLocked(chatID).activeAlias
}

// List returns the chat's unlocked alias names, sorted.
func (r *Registry) List(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.chatLocked(chatID)
	names := make([]string, 0, len(state.crms))
	for name := range state.crms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes the alias from the chat, clearing the active alias when it
// pointed at the removed entry.
func (r *Registry) Delete(ctx context.Context, chatID int64, alias string) bool {
	r.mu.Lock()
	state := r.chatLocked(chatID)
	if _, ok := state.crms[alias]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(state.crms, alias)
	if state.activeAlias == alias {
		state.activeAlias = ""
	}
	conns := connectionsLocked(state)
	r.mu.Unlock()

	r.persist(ctx, chatID, conns)
	return true
}

// ResolveActive returns the connection details for the chat's active alias.
// An expired authentication is marked unauthenticated and reported as not
// found so the caller prompts a re-login. When no alias is active the
// default connection from config is returned if fully configured.
func (r *Registry) ResolveActive(chatID int64) (Connection, bool) {
	r.mu.Lock()
	state := r.chatLocked(chatID)
	alias := state.activeAlias
	if alias == "" {
		r.mu.Unlock()
		return r.defaultConnection()
	}

	entry, ok := state.crms[alias]
	if !ok {
		r.mu.Unlock()
		return Connection{}, false
	}
	if r.expiredLocked(entry) {
		entry.auth.Authenticated = false
		r.mu.Unlock()
		r.logger.Info("auth session expired", slog.Int64("chat_id", chatID), slog.String("alias", alias))
		return Connection{}, false
	}
	conn := entry.conn
	r.mu.Unlock()
	return conn, true
}

// defaultConnection assembles the fallback connection from the base config.
func (r *Registry) defaultConnection() (Connection, bool) {
	if r.cfg.BaseURL == "" || r.cfg.APIKey == "" || r.cfg.APISecret == "" {
		return Connection{}, false
	}
	return Connection{
		Alias:     DefaultAlias,
		URL:       r.cfg.BaseURL,
		APIKey:    r.cfg.APIKey,
		APISecret: r.cfg.APISecret,
	}, true
}

// expiredLocked reports whether the entry's authentication has aged out.
func (r *Registry) expiredLocked(entry *chatEntry) bool {
	if !entry.auth.Authenticated || entry.auth.AuthAt.IsZero() {
		return true
	}
	if r.sessionDuration <= 0 {
		return false
	}
	return r.now().Sub(entry.auth.AuthAt) > r.sessionDuration
}

// SweepExpired marks every expired authentication unauthenticated and
// returns how many entries were swept. Run periodically from cron.
func (r *Registry) SweepExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	swept := 0
	for chatID, state := range r.chats {
		for alias, entry := range state.crms {
			if entry.auth.Authenticated && r.expiredLocked(entry) {
				entry.auth.Authenticated = false
				swept++
				r.logger.Info("swept expired auth",
					slog.Int64("chat_id", chatID),
					slog.String("alias", alias),
				)
			}
		}
	}
	return swept
}

func connectionsLocked(state *chatState) []Connection {
	conns := make([]Connection, 0, len(state.crms))
	for _, entry := range state.crms {
		conns = append(conns, entry.conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Alias < conns[j].Alias })
	return conns
}

func (r *Registry) persist(ctx context.Context, chatID int64, conns []Connection) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveChat(ctx, chatID, conns); err != nil {
		r.logger.Error("persist connections failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
