package gateway

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// Jar is an http.CookieJar that can be emptied when a scope is destroyed.
type Jar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

var (
	_ http.CookieJar  = (*Jar)(nil)
	_ ports.CookieJar = (*Jar)(nil)
)

func NewJar() *Jar {
	j := &Jar{}
	j.Reset()
	return j
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset drops every stored cookie.
func (j *Jar) Reset() {
	// cookiejar.New only fails on a bad PublicSuffixList option
	fresh, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = fresh
	j.mu.Unlock()
}
