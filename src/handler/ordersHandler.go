package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"neotrade/src/auth"
	"neotrade/src/model"
	"neotrade/src/placement"
	"neotrade/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type orderSearcher interface {
	Search(ctx context.Context, options repository.OrderSearchOptions) ([]model.Order, error)
}

type orderPlacer interface {
	Place(ctx context.Context, id model.Identity, req placement.Request) (*placement.Result, error)
	Reverse(ctx context.Context, id model.Identity, symbol string, price decimal.Decimal, clientOrderID string) (*placement.Result, error)
}

type priceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

type placeOrderPayload struct {
	Symbol        string           `json:"symbol"`
	Side          string           `json:"side"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Quantity      int64            `json:"quantity,omitempty"`
	Flip          bool             `json:"flip,omitempty"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
}

type reversePayload struct {
	Symbol        string           `json:"symbol"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
}

// livePrice stamps the current tick price unless the caller sent the price it saw.
func livePrice(prices priceSource, symbol string, given *decimal.Decimal) (decimal.Decimal, bool) {
	if given != nil {
		return *given, true
	}
	return prices.Price(strings.TrimSpace(symbol))
}

// PlaceOrderHandler records a BUY/SELL/CALL/PUT order, optionally as a flip.
func PlaceOrderHandler(placer orderPlacer, prices priceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload placeOrderPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid order payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		side, err := model.ParseSide(payload.Side)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		price, ok := livePrice(prices, payload.Symbol, payload.Price)
		if !ok {
			http.Error(w, "no live price for symbol", http.StatusBadRequest)
			return
		}

		result, err := placer.Place(r.Context(), id, placement.Request{
			Symbol:        payload.Symbol,
			Side:          side,
			Price:         price,
			Quantity:      payload.Quantity,
			Flip:          payload.Flip,
			ClientOrderID: payload.ClientOrderID,
		})
		if err != nil {
			logger.WithError(err).WithField("user", id.UserID).Error("failed to place order")
			writeError(w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, result)
	}
}

// ReverseOrderHandler flips the caller's open position on a symbol.
func ReverseOrderHandler(placer orderPlacer, prices priceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload reversePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil || strings.TrimSpace(payload.Symbol) == "" {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		price, ok := livePrice(prices, payload.Symbol, payload.Price)
		if !ok {
			http.Error(w, "no live price for symbol", http.StatusBadRequest)
			return
		}

		result, err := placer.Reverse(r.Context(), id, payload.Symbol, price, payload.ClientOrderID)
		if err != nil {
			logger.WithError(err).WithField("user", id.UserID).Warn("failed to reverse position")
			writeError(w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, result)
	}
}

// SearchOrdersHandler returns a handler that lists orders for the authenticated user.
// Supports pagination and filters (symbol, from, to).
func SearchOrdersHandler(repo orderSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var symbol *string
		if symbolParam := r.URL.Query().Get("symbol"); symbolParam != "" {
			symbol = &symbolParam
		}

		var from, to *int64
		if fromParam := r.URL.Query().Get("from"); fromParam != "" {
			parsed, err := time.Parse(time.RFC3339, fromParam)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			ms := parsed.UnixMilli()
			from = &ms
		}

		if toParam := r.URL.Query().Get("to"); toParam != "" {
			parsed, err := time.Parse(time.RFC3339, toParam)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			ms := parsed.UnixMilli()
			to = &ms
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 100
		if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}

		orders, err := repo.Search(r.Context(), repository.OrderSearchOptions{
			Tenant: id.Tenant,
			UserID: id.UserID,
			Symbol: symbol,
			From:   from,
			To:     to,
			Limit:  pageSize,
			Offset: (page - 1) * pageSize,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search orders")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if orders == nil {
			orders = []model.Order{}
		}
		writeJSON(w, http.StatusOK, orders)
	}
}
