package domain

import "errors"

var (
	// ErrTripNotFound возвращается когда поездка не найдена
	ErrTripNotFound = errors.New("trip not found")

	// ErrInvalidStatus возвращается при статусе вне перечисления
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrMissingAddress возвращается при пустом pickup или dropoff
	ErrMissingAddress = errors.New("pickup and dropoff addresses are required")
)
