package handler

import (
	"net/http"

	"neotrade/src/auth"

	logger "github.com/sirupsen/logrus"
)

type sessionResponse struct {
	UserID    string `json:"user_id"`
	Tenant    string `json:"tenant"`
	Anonymous bool   `json:"anonymous"`
	// Only present when a new credential was issued.
	Token string `json:"token,omitempty"`
}

// SessionHandler resolves the caller's identity. Without a bearer credential a
// new anonymous user is signed in and its credential returned once.
func SessionHandler(resolver auth.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grant, err := resolver.Resolve(r.Context(), auth.Credential(r))
		if err != nil {
			logger.WithError(err).Warn("session could not be resolved")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		status := http.StatusOK
		if grant.Credential != "" {
			status = http.StatusCreated
		}

		writeJSON(w, status, sessionResponse{
			UserID:    grant.Identity.UserID,
			Tenant:    grant.Identity.Tenant,
			Anonymous: grant.Identity.Anonymous,
			Token:     grant.Credential,
		})
	}
}
