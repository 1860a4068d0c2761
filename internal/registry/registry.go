// Package registry is the authoritative owner of login-session records: the
// only place that creates, queries or deletes them, and the home of the
// who-may-touch-which-session rule.
package registry

import (
	"context"
	"errors"
	"log"
	"time"

	"menedzer-sesji/internal/database"
	"menedzer-sesji/internal/models"

	"github.com/google/uuid"
)

// TransportSessionKey is the transport-session key holding the id of the
// login session backing the current request.
const TransportSessionKey = "loginSessionID"

var (
	// ErrMissingRequestContext signals a call that needed request state but
	// received none. Programming error; never surfaced over HTTP.
	ErrMissingRequestContext = errors.New("no request context available")
	// ErrInvalidOwner re-exports the storage error for callers of Generate.
	ErrInvalidOwner = database.ErrInvalidOwner
	// ErrSessionNotFound re-exports the storage error for callers of Delete.
	ErrSessionNotFound = database.ErrSessionNotFound
)

// RequestContext exposes the request state the registry needs. Implemented by
// websession.Context in production and by test doubles in tests.
type RequestContext interface {
	SourceIP() string
	UserAgentString() string
	HeaderValue(name string) string
	SessionGet(key string) string
	SessionSet(key, value string)
}

type Registry struct {
	store    *database.Store
	lifetime time.Duration
}

// New returns a registry whose active-session window is lifetime.
func New(store *database.Store, lifetime time.Duration) *Registry {
	return &Registry{store: store, lifetime: lifetime}
}

// Generate creates and stores a fresh login session for ownerID, capturing
// the source IP and user-agent string from rc. Called by the login handler
// right after successful authentication.
func (r *Registry) Generate(ctx context.Context, ownerID int64, persistent bool, rc RequestContext) (*models.LoginSession, error) {
	if rc == nil {
		return nil, ErrMissingRequestContext
	}

	session, err := r.store.CreateLoginSession(ctx, database.CreateLoginSessionParams{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Persistent: persistent,
		IPAddress:  rc.SourceIP(),
		UserAgent:  rc.UserAgentString(),
	})
	if err != nil {
		return nil, err
	}

	r.logEvent(ctx, ownerID, database.EventSessionCreated, session)

	return session, nil
}

// Find returns the owner's most recently active persistent session matching
// the request's IP and user agent, or nil. Lets a returning "remember me"
// browser reattach instead of piling up duplicate records.
func (r *Registry) Find(ctx context.Context, ownerID int64, rc RequestContext) (*models.LoginSession, error) {
	if rc == nil {
		return nil, ErrMissingRequestContext
	}
	return r.store.FindPersistentLoginSession(ctx, ownerID, rc.SourceIP(), rc.UserAgentString())
}

// GetCurrentLoginSession resolves the session backing this very request from
// the identifier stored in the transport session. Returns nil when the
// transport session carries no identifier, the identifier resolves to
// nothing, or the resolved session belongs to someone other than principalID.
func (r *Registry) GetCurrentLoginSession(ctx context.Context, principalID int64, rc RequestContext) (*models.LoginSession, error) {
	if rc == nil {
		return nil, ErrMissingRequestContext
	}

	raw := rc.SessionGet(TransportSessionKey)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}

	session, err := r.store.GetLoginSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil || session.OwnerID != principalID {
		return nil, nil
	}
	return session, nil
}

// IsCurrent reports whether session backs the current request.
func (r *Registry) IsCurrent(ctx context.Context, session *models.LoginSession, principalID int64, rc RequestContext) (bool, error) {
	current, err := r.GetCurrentLoginSession(ctx, principalID, rc)
	if err != nil {
		return false, err
	}
	return current != nil && current.ID == session.ID, nil
}

// GetCurrentSessions lists the owner's active sessions: persistent ones plus
// any accessed within the lifetime window, most recently active first. This
// ordering is the canonical one for every session listing in the panel.
func (r *Registry) GetCurrentSessions(ctx context.Context, ownerID int64) ([]models.LoginSession, error) {
	cutoff := time.Now().Add(-r.lifetime)
	return r.store.ListActiveLoginSessions(ctx, ownerID, cutoff)
}

// Touch bumps the session's last-accessed time. Called by the auth middleware
// on every authenticated request that rides this session.
func (r *Registry) Touch(ctx context.Context, session *models.LoginSession) error {
	_, err := r.store.TouchLoginSession(ctx, session.ID)
	return err
}

// Delete permanently removes the session, forcing logout of the device it
// represents. Deleting an id that no longer resolves yields
// ErrSessionNotFound.
func (r *Registry) Delete(ctx context.Context, session *models.LoginSession) error {
	deleted, err := r.store.DeleteLoginSessionByID(ctx, session.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}

	r.logEvent(ctx, session.OwnerID, database.EventSessionRemoved, session)

	return nil
}

// GetByID looks a session up by identifier, nil when absent.
func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (*models.LoginSession, error) {
	return r.store.GetLoginSessionByID(ctx, id)
}

// DeleteAllExcept removes every other session of the owner, returning how
// many were ended.
func (r *Registry) DeleteAllExcept(ctx context.Context, ownerID int64, keep uuid.UUID) (int64, error) {
	removed, err := r.store.DeleteOtherLoginSessionsForOwner(ctx, ownerID, keep)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logEvent(ctx, ownerID, database.EventSessionRemoved, map[string]int64{"removed": removed})
	}
	return removed, nil
}

// Audit events must not fail the operation they describe.
func (r *Registry) logEvent(ctx context.Context, ownerID int64, eventType string, payload interface{}) {
	if err := r.store.LogEvent(ctx, ownerID, eventType, payload); err != nil {
		log.Printf("WARN: Failed to journal %s event for user %d: %v", eventType, ownerID, err)
	}
}
