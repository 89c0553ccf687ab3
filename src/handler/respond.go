package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"neotrade/src/identity"
	"neotrade/src/ledger"
	"neotrade/src/placement"

	logger "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		identityErr    *identity.IdentityError
		flipAbortErr   *placement.FlipAbortError
		persistenceErr *ledger.PersistenceError
	)

	switch {
	case errors.Is(err, placement.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrIdentityUnresolved), errors.As(err, &identityErr):
		return http.StatusUnauthorized
	case errors.Is(err, placement.ErrFlatPosition):
		return http.StatusConflict
	case errors.As(err, &flipAbortErr), errors.As(err, &persistenceErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	if status == http.StatusBadRequest || status == http.StatusConflict {
		msg = err.Error()
	}
	http.Error(w, msg, status)
}
