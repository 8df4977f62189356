package user

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound пользователь не найден
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive пользователь неактивен
	ErrUserInactive = errors.New("user is inactive")

	// ErrPhoneNumberTaken номер телефона уже зарегистрирован
	ErrPhoneNumberTaken = errors.New("phone number already registered")
)

// Repository — storage service для principals
type Repository interface {
	// FindByID находит пользователя по ID.
	// Возвращает ErrUserNotFound если не найден.
	FindByID(ctx context.Context, userID string) (*User, error)

	// Create сохраняет нового пользователя с хешированным паролем
	Create(ctx context.Context, u *User, password string) error
}
