package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"neotrade/src/auth"
	"neotrade/src/model"
	"neotrade/src/positions"
	"neotrade/src/rules"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type snapshotReader interface {
	Snapshot(ctx context.Context, id model.Identity) ([]model.Order, error)
}

type priceBoard interface {
	Prices() map[string]decimal.Decimal
}

// PositionsHandler returns the open holdings marked at the live prices.
func PositionsHandler(ledger snapshotReader, prices priceBoard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := ledger.Snapshot(r.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("user", id.UserID).Error("failed to read ledger")
			writeError(w, err)
			return
		}

		holdings := positions.Holdings(orders, prices.Prices())
		if holdings == nil {
			holdings = []model.Position{}
		}
		writeJSON(w, http.StatusOK, holdings)
	}
}

type rulesResponse struct {
	Symbol      string         `json:"symbol"`
	NetQuantity int64          `json:"net_quantity"`
	Rules       []rules.Status `json:"rules"`
}

// RulesHandler projects the rule monitor for one symbol. The two toggles are
// owned by the client and passed as profitLock and lastExitPrice.
func RulesHandler(ledger snapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		symbol, err := url.PathUnescape(chi.URLParam(r, "symbol"))
		symbol = strings.TrimSpace(symbol)
		if err != nil || symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}

		cfg := rules.Config{}
		switch strings.ToLower(r.URL.Query().Get("profitLock")) {
		case "", "false", "0", "off":
		case "true", "1", "on":
			cfg.ProfitLockArmed = true
		default:
			http.Error(w, "invalid profitLock", http.StatusBadRequest)
			return
		}
		if raw := r.URL.Query().Get("lastExitPrice"); raw != "" {
			exit, err := decimal.NewFromString(raw)
			if err != nil {
				http.Error(w, "invalid lastExitPrice", http.StatusBadRequest)
				return
			}
			cfg.LastExitPrice = &exit
		}

		orders, err := ledger.Snapshot(r.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("user", id.UserID).Error("failed to read ledger")
			writeError(w, err)
			return
		}

		position := positions.Aggregate(orders)[symbol]
		position.Symbol = symbol

		writeJSON(w, http.StatusOK, rulesResponse{
			Symbol:      symbol,
			NetQuantity: position.NetQuantity,
			Rules:       rules.Evaluate(position, cfg),
		})
	}
}
