package in

import (
	"context"

	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// CreateTripInput — данные для создания поездки
type CreateTripInput struct {
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	RiderID string `json:"rider"`
}

// CreateTripUseCase создает поездку в статусе REQUESTED
type CreateTripUseCase interface {
	Execute(ctx context.Context, input CreateTripInput) (*domain.View, error)
}
