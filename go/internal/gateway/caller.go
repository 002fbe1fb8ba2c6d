package gateway

import (
	"net/http"

	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Identity is taken as sent. There is no authentication layer; the role
// only gates which operations a request may attempt.
const (
	headerUserRole = "X-User-Role"
	headerUserID   = "X-User-ID"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// queryIdentity reads the caller of a read-only request from the query
// string, falling back to headers.
func queryIdentity(r *http.Request) (models.Role, string) {
	q := r.URL.Query()
	role := firstNonEmpty(q.Get("userRole"), r.Header.Get(headerUserRole))
	id := firstNonEmpty(q.Get("userId"), q.Get("auctioneerId"), r.Header.Get(headerUserID))
	return models.Role(role), id
}
