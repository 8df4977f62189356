package usecase

import (
	"context"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// buildView разворачивает ссылки rider/driver во вложенные публичные
// объекты. Несуществующий пользователь не ломает broadcast — ссылка
// остается null, а аномалия уходит в лог.
func buildView(ctx context.Context, t *domain.Trip, users user.Repository, log *logger.Logger) *domain.View {
	v := &domain.View{
		ID:      t.ID,
		Pickup:  t.Pickup,
		Dropoff: t.Dropoff,
		Status:  t.Status,
		Created: t.Created,
		Updated: t.Updated,
	}

	v.Rider = resolvePublic(ctx, t.RiderID, users, log, t.ID, "rider")
	v.Driver = resolvePublic(ctx, t.DriverID, users, log, t.ID, "driver")

	return v
}

func resolvePublic(ctx context.Context, id *string, users user.Repository, log *logger.Logger, tripID, role string) *user.Public {
	if id == nil || *id == "" {
		return nil
	}

	u, err := users.FindByID(ctx, *id)
	if err != nil {
		log.Warn(logger.Entry{
			Action:  "trip_participant_unresolved",
			Message: *id,
			TripID:  tripID,
			Additional: map[string]any{
				"participant": role,
				"reason":      err.Error(),
			},
		})
		return nil
	}

	return u.Public()
}
