package auth

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// sessionJar is a cookie jar that can be emptied on reset. Form and SSO
// providers install it on their HTTP client.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar() *sessionJar {
	j := &sessionJar{}
	j.clear()
	return j
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// clear drops every cookie.
func (j *sessionJar) clear() {
	// cookiejar.New only fails on a nil-safe Options value it never rejects.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

// addCookies copies the jar's cookies for req.URL onto req unless the
// request already carries a Cookie header (an http.Client with this jar
// will have set it).
func (j *sessionJar) addCookies(req *http.Request) {
	if req.Header.Get("Cookie") != "" {
		return
	}
	for _, c := range j.Cookies(req.URL) {
		req.AddCookie(c)
	}
}
