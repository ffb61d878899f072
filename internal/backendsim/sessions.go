package backendsim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Songmu/flextime"
	"github.com/google/uuid"
	"github.com/progress/jsdo/pkg/cryptox"
)

var (
	errSessionNotFound = errors.New("backendsim: session not found")
	errRefreshUnknown  = errors.New("backendsim: refresh token not recognised")
	errRefreshExpired  = errors.New("backendsim: refresh token expired")
)

// serverSession is a logged-in user on the simulated backend. Form logins
// hold it through the JSESSIONID cookie, SSO logins through the sid claim.
type serverSession struct {
	ID       string
	Username string
	Created  time.Time
}

type refreshGrant struct {
	SessionID string
	Username  string
	Expires   time.Time
}

// sessionRegistry keeps sessions and refresh grants in memory. Refresh
// tokens are stored by fingerprint only.
type sessionRegistry struct {
	refreshTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*serverSession
	grants   map[string]*refreshGrant
}

func newSessionRegistry(refreshTTL time.Duration) *sessionRegistry {
	return &sessionRegistry{
		refreshTTL: refreshTTL,
		sessions:   make(map[string]*serverSession),
		grants:     make(map[string]*refreshGrant),
	}
}

func (r *sessionRegistry) create(username string) *serverSession {
	s := &serverSession{ID: uuid.NewString(), Username: username, Created: flextime.Now()}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *sessionRegistry) get(id string) (*serverSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return s, nil
}

// end removes the session and every refresh grant issued for it.
func (r *sessionRegistry) end(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return errSessionNotFound
	}
	delete(r.sessions, id)
	for fp, g := range r.grants {
		if g.SessionID == id {
			delete(r.grants, fp)
		}
	}
	return nil
}

// issueRefresh mints a refresh token bound to s.
func (r *sessionRegistry) issueRefresh(s *serverSession) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	r.mu.Lock()
	r.grants[cryptox.FingerprintToken(token)] = &refreshGrant{
		SessionID: s.ID,
		Username:  s.Username,
		Expires:   flextime.Now().Add(r.refreshTTL),
	}
	r.mu.Unlock()
	return token, nil
}

// redeem validates a refresh token and returns its session. With rotate
// the token is consumed.
func (r *sessionRegistry) redeem(token string, rotate bool) (*serverSession, error) {
	fp := cryptox.FingerprintToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[fp]
	if !ok {
		return nil, errRefreshUnknown
	}
	if flextime.Now().After(g.Expires) {
		delete(r.grants, fp)
		return nil, errRefreshExpired
	}

	s, ok := r.sessions[g.SessionID]
	if !ok {
		delete(r.grants, fp)
		return nil, errSessionNotFound
	}
	if rotate {
		delete(r.grants, fp)
	}
	return s, nil
}
