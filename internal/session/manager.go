package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pos-admin/internal/api"
	"pos-admin/internal/rbac"

	"golang.org/x/sync/singleflight"
)

// User-facing login failure messages. Fixed strings: raw server payloads for
// the credential case must never reach the operator.
const (
	msgInvalidCredentials = "invalid username or password"
	msgConnectivity       = "cannot reach the server, check your connection and try again"
	msgUnexpectedResponse = "unexpected server response"
	msgUserDetails        = "could not retrieve user details"
)

// ErrSessionExpired is returned by Refresh when the stored session could not
// be renewed. Callers are already logged out by the time they see it.
var ErrSessionExpired = errors.New("session expired")

// State is a point-in-time view of the session. Snapshots are internally
// consistent: a new access token is never visible with a stale user.
type State struct {
	AccessToken   string
	RefreshToken  string
	CurrentUser   *rbac.User
	Loading       bool
	LastAuthError string
}

// Authenticated reports whether an operator is logged in.
func (s State) Authenticated() bool { return s.CurrentUser != nil }

// Options tune the Manager. Zero values get sensible defaults.
type Options struct {
	// CheckInterval is the period of the background expiry check.
	CheckInterval time.Duration
	// ExpiryMargin widens the refresh window so a token never expires
	// between two ticks.
	ExpiryMargin time.Duration
	// Clock is injectable for deterministic tests.
	Clock  func() time.Time
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	out := o
	if out.CheckInterval <= 0 {
		out.CheckInterval = 5 * time.Minute
	}
	if out.ExpiryMargin <= 0 {
		out.ExpiryMargin = 30 * time.Second
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Manager owns the authenticated-session lifecycle: login, logout, durable
// token storage, scheduled refresh and user hydration. One instance exists
// per process; it is the only writer of both the in-memory state and the
// durable store.
type Manager struct {
	api   *api.Client
	store Store
	log   *slog.Logger
	clock func() time.Time

	checkInterval time.Duration
	expiryMargin  time.Duration

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int

	// refresh is single-flight: concurrent triggers share one network call
	// so a rotating refresh token is never spent twice.
	refreshGroup singleflight.Group

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager restores any stored session and starts the background expiry
// check. A stored token that is already expired is refreshed before
// NewManager returns; a token that cannot be resolved to a user tears the
// session down. Call Close to stop the background check.
func NewManager(ctx context.Context, client *api.Client, store Store, opts Options) (*Manager, error) {
	if client == nil {
		return nil, errors.New("api client is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	opts = opts.withDefaults()

	m := &Manager{
		api:           client,
		store:         store,
		log:           opts.Logger,
		clock:         opts.Clock,
		checkInterval: opts.CheckInterval,
		expiryMargin:  opts.ExpiryMargin,
		subs:          map[int]func(State){},
		done:          make(chan struct{}),
	}
	m.state.Loading = true

	m.restore(ctx)
	m.update(func(s *State) { s.Loading = false })

	m.wg.Add(1)
	go m.runExpiryCheck()

	return m, nil
}

// restore rebuilds session state from the durable store at startup.
func (m *Manager) restore(ctx context.Context) {
	rec, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("session restore failed, starting unauthenticated", "err", err)
		return
	}
	if rec.AccessToken == "" {
		return
	}

	expiry, err := tokenExpiry(rec.AccessToken)
	if err != nil {
		m.log.Warn("stored access token unreadable, clearing session", "err", err)
		m.Logout(ctx)
		return
	}

	if expiry.Before(m.clock()) {
		if err := m.Refresh(ctx); err != nil {
			m.log.Info("stored session could not be renewed", "err", err)
		}
		return
	}

	// Token still valid. The stored user profile is trusted as-is rather
	// than re-fetched, so a server-side role change only becomes visible
	// after the next refresh.
	if u, ok := decodeUser(rec.User); ok {
		m.update(func(s *State) {
			s.AccessToken = rec.AccessToken
			s.RefreshToken = rec.RefreshToken
			s.CurrentUser = u
		})
		return
	}

	// No usable stored profile: hydrate now, or tear down. A token without
	// a resolvable user is not a session.
	user, err := m.api.CurrentUser(ctx, rec.AccessToken)
	if err != nil {
		m.log.Warn("stored session has no resolvable user, clearing", "err", err)
		m.Logout(ctx)
		return
	}
	m.persistAndSet(ctx, rec.AccessToken, rec.RefreshToken, user)
}

// Login exchanges credentials for a session. On failure the returned error
// carries the same operator-safe message that is left in LastAuthError.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.update(func(s *State) {
		s.Loading = true
		s.LastAuthError = ""
	})
	defer m.update(func(s *State) { s.Loading = false })

	pair, err := m.api.IssueToken(ctx, username, password)
	if err != nil {
		return m.failLogin(loginMessage(err))
	}
	if pair.Access == "" {
		return m.failLogin(msgUnexpectedResponse)
	}

	user, err := m.api.CurrentUser(ctx, pair.Access)
	if err != nil {
		// Nothing is persisted on hydration failure.
		return m.failLogin(msgUserDetails)
	}

	m.persistAndSet(ctx, pair.Access, pair.Refresh, user)
	m.log.Info("login succeeded", "username", user.Username)
	return nil
}

// Logout clears the session from memory and durable storage. Idempotent.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("clearing durable session failed", "err", err)
	}
	m.update(func(s *State) { *s = State{} })
}

// Refresh exchanges the stored refresh token for a new access token and
// re-hydrates the user. Any failure degrades into a forced logout and is
// reported as ErrSessionExpired; refresh failures are never surfaced as
// blocking errors. Concurrent callers share a single in-flight attempt.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.update(func(s *State) { s.Loading = true })
	defer m.update(func(s *State) { s.Loading = false })

	rec, err := m.store.Load(ctx)
	if err != nil || rec.RefreshToken == "" {
		m.Logout(ctx)
		return fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	}

	pair, err := m.api.RefreshToken(ctx, rec.RefreshToken)
	if err != nil || pair.Access == "" {
		m.Logout(ctx)
		return fmt.Errorf("%w: refresh rejected", ErrSessionExpired)
	}

	user, err := m.api.CurrentUser(ctx, pair.Access)
	if err != nil {
		m.Logout(ctx)
		return fmt.Errorf("%w: user hydration failed", ErrSessionExpired)
	}

	refresh := pair.Refresh
	if refresh == "" {
		// Endpoint did not rotate; the old token stays valid.
		refresh = rec.RefreshToken
	}
	m.persistAndSet(ctx, pair.Access, refresh, user)
	m.log.Debug("session refreshed", "username", user.Username)
	return nil
}

// Snapshot returns a consistent copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to run after every state change, with the new
// state. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops the background expiry check. The session itself is left
// intact; use Logout to end it.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

func (m *Manager) runExpiryCheck() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			st := m.Snapshot()
			if st.AccessToken == "" {
				continue
			}
			expiry, err := tokenExpiry(st.AccessToken)
			if err != nil {
				continue
			}
			if !expiresWithin(expiry, m.clock(), m.checkInterval+m.expiryMargin) {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.Refresh(ctx); err != nil {
				m.log.Info("scheduled refresh ended the session", "err", err)
			}
			cancel()
		}
	}
}

// persistAndSet writes the new credentials durably and then publishes the
// matching in-memory state in one step. A store failure is logged but does
// not block the in-memory session.
func (m *Manager) persistAndSet(ctx context.Context, access, refresh string, user rbac.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		m.log.Warn("serializing user profile failed", "err", err)
	}
	rec := Record{AccessToken: access, RefreshToken: refresh, User: raw}
	if err := m.store.Save(ctx, rec); err != nil {
		m.log.Warn("persisting session failed, session is memory-only", "err", err)
	}

	m.update(func(s *State) {
		s.AccessToken = access
		s.RefreshToken = refresh
		s.CurrentUser = &user
		s.LastAuthError = ""
	})
}

func (m *Manager) failLogin(msg string) error {
	m.update(func(s *State) { s.LastAuthError = msg })
	return errors.New(msg)
}

// update applies fn under the lock and notifies subscribers with the new
// state outside of it.
func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	st := m.state
	subs := make([]func(State), 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
}

// loginMessage maps an API client error to the operator-safe wording.
func loginMessage(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return msgConnectivity
	}
	switch apiErr.Kind {
	case api.KindCredential:
		return msgInvalidCredentials
	case api.KindConnectivity:
		return msgConnectivity
	case api.KindValidation:
		return apiErr.FieldMessages()
	default:
		return fmt.Sprintf("server error: %d", apiErr.Status)
	}
}

func decodeUser(raw json.RawMessage) (*rbac.User, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var u rbac.User
	if err := json.Unmarshal(raw, &u); err != nil || u.Username == "" {
		return nil, false
	}
	u.Normalize()
	return &u, true
}
