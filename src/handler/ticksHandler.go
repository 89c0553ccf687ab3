package handler

import (
	"net/http"

	"neotrade/src/model"
)

type tickSource interface {
	Snapshot() []model.Tick
}

// TicksHandler returns the latest tick of every watched instrument.
func TicksHandler(feed tickSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, feed.Snapshot())
	}
}
