package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/utils"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/in"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/out"
	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// CreateTripService реализует CreateTripUseCase
type CreateTripService struct {
	trips out.TripRepository
	users user.Repository
	log   *logger.Logger
}

// NewCreateTripService создает сервис создания поездки
func NewCreateTripService(trips out.TripRepository, users user.Repository, log *logger.Logger) *CreateTripService {
	return &CreateTripService{
		trips: trips,
		users: users,
		log:   log,
	}
}

// Execute создает поездку: статус REQUESTED, водитель не назначен
func (s *CreateTripService) Execute(ctx context.Context, input in.CreateTripInput) (*domain.View, error) {
	pickup := strings.TrimSpace(input.Pickup)
	dropoff := strings.TrimSpace(input.Dropoff)
	if pickup == "" || dropoff == "" {
		return nil, domain.ErrMissingAddress
	}

	now := time.Now().UTC()
	trip := &domain.Trip{
		ID:      utils.NewUUID(),
		Pickup:  pickup,
		Dropoff: dropoff,
		Status:  domain.StatusRequested,
		Created: now,
		Updated: now,
	}
	if riderID := strings.TrimSpace(input.RiderID); riderID != "" {
		trip.RiderID = &riderID
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		s.log.Error(logger.Entry{
			Action:  "create_trip_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"rider_id": input.RiderID,
			},
		})
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:  "trip_created",
		Message: fmt.Sprintf("%s -> %s", pickup, dropoff),
		TripID:  trip.ID,
		Additional: map[string]any{
			"rider_id": input.RiderID,
		},
	})

	return buildView(ctx, trip, s.users, s.log), nil
}
