package in_ws

import (
	"context"
	"net/http"

	"github.com/yangakandeni/kwella/internal/shared/auth"
	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
)

// Authenticator — trust gate: разрешает идентичность соединения ДО любой
// протокольной логики. Сам по себе никогда не отклоняет рукопожатие:
// любой дефект токена деградирует до анонимного принципала, а решение
// "пускать или нет" принимает admission-политика сессии. Это разделение
// позволяет, например, добавить read-only анонимный режим, не трогая
// аутентификацию.
type Authenticator struct {
	jwt   *auth.JWTService
	users user.Repository
	log   *logger.Logger
}

// NewAuthenticator создает trust gate
func NewAuthenticator(jwt *auth.JWTService, users user.Repository, log *logger.Logger) *Authenticator {
	return &Authenticator{jwt: jwt, users: users, log: log}
}

// Authenticate извлекает токен из query-параметра и возвращает принципала
// либо nil (anonymous). Отсутствующий, просроченный или битый токен,
// неизвестный или неактивный пользователь — все это anonymous, не ошибка.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) *user.User {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil
	}

	userID, err := a.jwt.Verify(token)
	if err != nil {
		a.log.Debug(logger.Entry{
			Action:  "token_verification_failed",
			Message: err.Error(),
		})
		return nil
	}

	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		a.log.Debug(logger.Entry{
			Action:  "principal_resolution_failed",
			Message: userID,
			Additional: map[string]any{
				"reason": err.Error(),
			},
		})
		return nil
	}

	if !u.IsActive {
		return nil
	}

	return u
}
