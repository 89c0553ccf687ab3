package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"neotrade/src/auth"
	"neotrade/src/model"
)

type insighter interface {
	Insight(ctx context.Context, id model.Identity, prompt string) (string, error)
}

type insightPayload struct {
	Prompt string `json:"prompt"`
}

type insightResponse struct {
	Text string `json:"text"`
}

// InsightsHandler asks the text insight service for commentary. An empty body
// uses the default market prompt. Failures never touch trading state.
func InsightsHandler(svc insighter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload insightPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		text, err := svc.Insight(r.Context(), id, payload.Prompt)
		if err != nil {
			http.Error(w, "insight service unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, insightResponse{Text: text})
	}
}
