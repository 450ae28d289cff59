// Package api wraps the booking server's REST endpoints on top of the
// request gateway.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// Caller sends a request through the gate and decodes the envelope data.
type Caller interface {
	Call(ctx context.Context, req gateway.Request, out any) error
}

func pageQuery(p domain.Page) url.Values {
	p = p.WithDefaults()
	return url.Values{
		"page": {strconv.Itoa(p.Number)},
		"size": {strconv.Itoa(p.Size)},
	}
}

// signedWith returns an explicit Authorization header for token, or nil when
// the gate should resolve the credential itself.
func signedWith(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": {gateway.Bearer(token)}}
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}
