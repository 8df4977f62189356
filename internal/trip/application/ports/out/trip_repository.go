package out

import (
	"context"

	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// TripRepository — storage service для поездок
type TripRepository interface {
	// Create сохраняет новую поездку
	Create(ctx context.Context, t *domain.Trip) error

	// FindByID находит поездку по ID.
	// Возвращает domain.ErrTripNotFound если не найдена.
	FindByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update перезаписывает поля существующей поездки
	Update(ctx context.Context, t *domain.Trip) error

	// FindActiveByParticipant возвращает незавершенные поездки,
	// где пользователь — rider или driver (для re-join групп при connect)
	FindActiveByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error)
}
