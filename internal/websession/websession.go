// Package websession implements the cookie-backed transport session for the
// admin panel: a small keyed store carried in an authenticated cookie, plus
// the per-session SecurityID anti-forgery token.
package websession

import (
	"log"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/jaevor/go-nanoid"
)

const (
	CookieName = "panel_session"

	// SecurityIDKey is the key under which the anti-forgery token lives.
	SecurityIDKey = "SecurityID"

	defaultMaxAge = 12 * 3600
)

type Codec struct {
	sc *securecookie.SecureCookie
}

func NewCodec(secret []byte) *Codec {
	sc := securecookie.New(secret, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(defaultMaxAge)

	return &Codec{sc: sc}
}

// Session is the decoded transport-session state. A missing or undecodable
// cookie yields an empty session, never an error.
type Session struct {
	values map[string]string
	dirty  bool
}

func (c *Codec) Load(r *http.Request) *Session {
	s := &Session{values: make(map[string]string)}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return s
	}
	if err := c.sc.Decode(CookieName, cookie.Value, &s.values); err != nil {
		// Tampered or expired cookie; start over.
		s.values = make(map[string]string)
	}
	return s
}

func (c *Codec) Save(w http.ResponseWriter, s *Session) error {
	encoded, err := c.sc.Encode(CookieName, s.values)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   defaultMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.dirty = false
	return nil
}

func (s *Session) Get(key string) string {
	return s.values[key]
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

func (s *Session) Clear() {
	if len(s.values) > 0 {
		s.dirty = true
	}
	s.values = make(map[string]string)
}

func (s *Session) Dirty() bool {
	return s.dirty
}

// SecurityID returns the session's anti-forgery token, minting one on first
// use.
func (s *Session) SecurityID() string {
	if id := s.values[SecurityIDKey]; id != "" {
		return id
	}
	generateID, err := nanoid.Standard(32)
	if err != nil {
		// Only reachable with an invalid length constant.
		log.Printf("CRITICAL: Failed to initialize nanoid generator: %v", err)
		return ""
	}
	id := generateID()
	s.Set(SecurityIDKey, id)
	return id
}
