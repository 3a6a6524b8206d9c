package orders

import (
	"fmt"
	"strings"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
)

var orderStateTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusOpen:      {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusServed, models.OrderStatusCancelled},
	models.OrderStatusServed:    {models.OrderStatusPaid, models.OrderStatusCancelled},
}

// ParseStatus accepts the API values plus the in_kitchen alias of preparing.
func ParseStatus(raw string) (models.OrderStatus, error) {
	s := models.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case models.OrderStatusOpen, models.OrderStatusPreparing, models.OrderStatusServed,
		models.OrderStatusPaid, models.OrderStatusCancelled:
		return s, nil
	case models.OrderStatusInKitchen:
		return models.OrderStatusPreparing, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, raw)
}

func normalize(s models.OrderStatus) models.OrderStatus {
	if s == models.OrderStatusInKitchen {
		return models.OrderStatusPreparing
	}
	return s
}

// CanTransition reports whether from -> to is an edge of the order lifecycle.
// Nothing leaves paid or cancelled.
func CanTransition(from, to models.OrderStatus) bool {
	from, to = normalize(from), normalize(to)
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
