package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"neotrade/src/model"
)

// OrderRepository is the durable, append-only order store.
// It never updates or deletes rows.
type OrderRepository struct {
	db *gorm.DB
}

// OrderSearchOptions narrows an order history query. Tenant and UserID are mandatory.
type OrderSearchOptions struct {
	Tenant string
	UserID string
	Symbol *string
	// Inclusive bounds on the order timestamp, ms since epoch.
	From   *int64
	To     *int64
	Limit  int
	Offset int
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Debug("Creating OrderRepository with custom DB instance")

	return &OrderRepository{db: db}
}

// Append inserts a new order. The given order is updated with the generated ID.
func (r *OrderRepository) Append(
	ctx context.Context,
	order *model.Order,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Append",
		"user":   order.UserID,
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Quantity,
		"status": order.Status,
	}).Debug("Appending order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Append",
		}).WithError(err).Error("Failed to append order")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Append",
		"order_id": order.ID,
	}).Info("Order appended successfully")

	return nil
}

// ListByUser returns every order of one user, newest first.
func (r *OrderRepository) ListByUser(
	ctx context.Context,
	tenant string,
	userID string,
) ([]model.Order, error) {
	return r.Search(ctx, OrderSearchOptions{Tenant: tenant, UserID: userID})
}

// Search lists a user's orders newest first, with optional filters and pagination.
func (r *OrderRepository) Search(
	ctx context.Context,
	options OrderSearchOptions,
) ([]model.Order, error) {

	fields := map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Search",
		"tenant": options.Tenant,
		"user":   options.UserID,
	}
	logger.WithFields(fields).Debug("Searching orders")

	query := r.db.WithContext(ctx).
		Where("tenant = ?", options.Tenant).
		Where("user_id = ?", options.UserID)

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}
	if options.From != nil {
		query = query.Where("timestamp >= ?", *options.From)
	}
	if options.To != nil {
		query = query.Where("timestamp <= ?", *options.To)
	}

	query = query.Order("timestamp DESC, id DESC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to search orders")
		return nil, err
	}

	fields["rows_return"] = len(orders)
	logger.WithFields(fields).Debug("Orders fetched")

	return orders, nil
}

// FindByClientOrderID fetches the order carrying an idempotency token.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByClientOrderID(
	ctx context.Context,
	tenant string,
	userID string,
	clientOrderID string,
) (*model.Order, error) {

	var order model.Order

	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Where("user_id = ?", userID).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "FindByClientOrderID",
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to fetch order by client order ID")

		return nil, err
	}

	return &order, nil
}
