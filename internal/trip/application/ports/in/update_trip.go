package in

import (
	"context"

	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// UpdateTripInput — изменяемые поля поездки. Пустые строки означают
// "оставить как есть" для pickup/dropoff; Status обязателен.
type UpdateTripInput struct {
	ID       string `json:"id"`
	Pickup   string `json:"pickup"`
	Dropoff  string `json:"dropoff"`
	Status   string `json:"status"`
	DriverID string `json:"driver"`
}

// UpdateTripUseCase применяет переход состояния к существующей поездке
type UpdateTripUseCase interface {
	Execute(ctx context.Context, input UpdateTripInput) (*domain.View, error)
}
