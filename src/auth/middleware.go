package auth

import (
	"context"
	"net/http"
	"strings"

	"neotrade/src/identity"

	logger "github.com/sirupsen/logrus"
)

type Resolver interface {
	Resolve(ctx context.Context, credential string) (*identity.Grant, error)
}

// Credential extracts the bearer credential of a request. Browsers cannot set
// headers on WebSocket upgrades, so the "token" query parameter is accepted too.
func Credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Middleware resolves the bearer credential and stores the identity on the
// request context. Requests without a valid credential get 401.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := Credential(r)
			if cred == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			grant, err := resolver.Resolve(r.Context(), cred)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Warn("request identity not resolved")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), grant.Identity)))
		})
	}
}
