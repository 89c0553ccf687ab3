package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideCall Side = "CALL"
	SidePut  Side = "PUT"
)

// ParseSide normalises a side coming from the outside world (case and spaces).
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToUpper(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", fmt.Errorf("unknown order side %q", s)
	}
	return side, nil
}

func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideCall, SidePut:
		return true
	}
	return false
}

// Direction is +1 for long actions (BUY, CALL) and -1 for short ones (SELL, PUT).
func (s Side) Direction() int64 {
	if s == SideBuy || s == SideCall {
		return 1
	}
	return -1
}

type OrderStatus string

const (
	OrderStatusExecuted   OrderStatus = "EXECUTED"
	OrderStatusSquaredOff OrderStatus = "SQUARED_OFF"
)

// Order is one immutable trade event of a user's ledger.
// Rows are only ever inserted; positions are derived from them.
type Order struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	Tenant        string          `gorm:"size:100;not null;index:idx_orders_owner,priority:1;uniqueIndex:idx_orders_client_order,priority:1" json:"tenant"`
	UserID        string          `gorm:"size:36;not null;index:idx_orders_owner,priority:2;uniqueIndex:idx_orders_client_order,priority:2" json:"user_id"`
	Symbol        string          `gorm:"size:100;not null" json:"symbol"`
	Side          Side            `gorm:"size:10;not null" json:"side"`
	Price         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	Timestamp     int64           `gorm:"not null;index:idx_orders_owner,priority:3" json:"timestamp"`
	Status        OrderStatus     `gorm:"size:20;not null" json:"status"`
	ClientOrderID *string         `gorm:"size:120;uniqueIndex:idx_orders_client_order,priority:3" json:"client_order_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the store-side identifier.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// SignedQuantity is the contribution of the order to the net position.
func (o Order) SignedQuantity() int64 {
	return o.Side.Direction() * o.Quantity
}
