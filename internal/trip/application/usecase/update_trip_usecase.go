package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/in"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/out"
	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// UpdateTripService реализует UpdateTripUseCase.
// Записи по одной поездке сериализуются per-trip мьютексом, чтобы два
// конкурентных update не потеряли изменения друг друга.
type UpdateTripService struct {
	trips out.TripRepository
	users user.Repository
	locks *tripLocks
	log   *logger.Logger
}

// NewUpdateTripService создает сервис обновления поездки
func NewUpdateTripService(trips out.TripRepository, users user.Repository, log *logger.Logger) *UpdateTripService {
	return &UpdateTripService{
		trips: trips,
		users: users,
		locks: newTripLocks(),
		log:   log,
	}
}

// Execute применяет изменения к существующей поездке
func (s *UpdateTripService) Execute(ctx context.Context, input in.UpdateTripInput) (*domain.View, error) {
	tripID := strings.TrimSpace(input.ID)
	if tripID == "" {
		return nil, domain.ErrTripNotFound
	}

	status := strings.TrimSpace(input.Status)
	if status != "" && !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	s.locks.lock(tripID)
	defer s.locks.unlock(tripID)

	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if status != "" {
		next := domain.Status(status)
		if next != trip.Status && !domain.ForwardTransition(trip.Status, next) {
			// Переход назад или через статус: аномалия уровня приложения.
			// Запись применяется, но след остается в логе.
			s.log.Warn(logger.Entry{
				Action:  "trip_status_regression",
				Message: fmt.Sprintf("%s -> %s", trip.Status, next),
				TripID:  trip.ID,
			})
		}
		trip.Status = next
	}

	if pickup := strings.TrimSpace(input.Pickup); pickup != "" {
		trip.Pickup = pickup
	}
	if dropoff := strings.TrimSpace(input.Dropoff); dropoff != "" {
		trip.Dropoff = dropoff
	}
	if driverID := strings.TrimSpace(input.DriverID); driverID != "" {
		if _, err := s.users.FindByID(ctx, driverID); err != nil {
			return nil, fmt.Errorf("assign driver %s: %w", driverID, err)
		}
		trip.DriverID = &driverID
	}

	trip.Updated = time.Now().UTC()

	if err := s.trips.Update(ctx, trip); err != nil {
		s.log.Error(logger.Entry{
			Action:  "update_trip_failed",
			Message: err.Error(),
			TripID:  trip.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("update trip: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:  "trip_updated",
		Message: string(trip.Status),
		TripID:  trip.ID,
		Additional: map[string]any{
			"driver_id": input.DriverID,
		},
	})

	return buildView(ctx, trip, s.users, s.log), nil
}
