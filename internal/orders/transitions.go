package orders

import (
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// transitions lists the statuses reachable from each status. cancelled,
// failed and returned are terminal. Once picked, an order can only fail out
// of the pipeline by being returned, which never restocks.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.OrderStatusFailed, enums.OrderStatusReturned,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusFailed, enums.OrderStatusReturned,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusPicked, enums.OrderStatusCancelled, enums.OrderStatusFailed, enums.OrderStatusReturned,
	},
	enums.OrderStatusPicked:    {enums.OrderStatusShipped, enums.OrderStatusReturned},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusReturned},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports statuses with no outgoing transitions.
func IsTerminal(status enums.OrderStatus) bool {
	return len(transitions[status]) == 0
}

func parseStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeInvalidStatusTransition, "unknown order status").WithDetails(map[string]any{
			"status": raw,
		})
	}
	return status, nil
}

func checkTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidStatusTransition, "status transition not allowed").WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}
