package placement

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder is wrapped by every validation failure.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrFlatPosition is returned when reversing a symbol with no open position.
	ErrFlatPosition = errors.New("position is flat")
	// ErrPositionLimit is returned for orders that would exceed MaxNetQuantity.
	// It wraps ErrInvalidOrder.
	ErrPositionLimit = fmt.Errorf("%w: position limit exceeded", ErrInvalidOrder)
)

// FlipAbortError reports that the closing half of a flip could not be recorded.
// The primary order was not placed and the position is unchanged.
type FlipAbortError struct {
	Symbol      string
	NetQuantity int64
	Err         error
}

func (e *FlipAbortError) Error() string {
	return fmt.Sprintf("flip on %s aborted (net %d): %v", e.Symbol, e.NetQuantity, e.Err)
}

func (e *FlipAbortError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
}
