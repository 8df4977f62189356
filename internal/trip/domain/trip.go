package domain

import (
	"time"

	"github.com/yangakandeni/kwella/internal/shared/user"
)

// Status — закрытое перечисление статусов поездки.
// Жизненный цикл строго вперед: REQUESTED → STARTED → IN_PROGRESS → COMPLETED.
type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusStarted    Status = "STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ValidStatus проверяет, что строка — один из известных статусов
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusRequested, StatusStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// rank возвращает порядковый номер статуса в жизненном цикле
func rank(s Status) int {
	switch s {
	case StatusRequested:
		return 0
	case StatusStarted:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	}
	return -1
}

// ForwardTransition сообщает, является ли переход from → to шагом строго
// вперед на один статус. Переход назад или через статус — аномалия,
// которую update use case логирует, но не отклоняет.
func ForwardTransition(from, to Status) bool {
	return rank(to) == rank(from)+1
}

// Trip — запись поездки. Владелец записи — storage service;
// здесь только представление для одного перехода состояния.
type Trip struct {
	ID       string    `json:"id" db:"id"`
	Pickup   string    `json:"pickup" db:"pickup"`
	Dropoff  string    `json:"dropoff" db:"dropoff"`
	Status   Status    `json:"status" db:"status"`
	RiderID  *string   `json:"rider_id,omitempty" db:"rider_id"`
	DriverID *string   `json:"driver_id,omitempty" db:"driver_id"`
	Created  time.Time `json:"created" db:"created"`
	Updated  time.Time `json:"updated" db:"updated"`
}

// IsActive: поездка еще не завершена, ее группа должна получать broadcast
func (t *Trip) IsActive() bool {
	return t.Status != StatusCompleted
}

// View — поездка во внешних сообщениях: ссылки rider/driver развернуты
// во вложенные публичные объекты, null если не назначены.
type View struct {
	ID      string       `json:"id"`
	Pickup  string       `json:"pickup"`
	Dropoff string       `json:"dropoff"`
	Status  Status       `json:"status"`
	Rider   *user.Public `json:"rider"`
	Driver  *user.Public `json:"driver"`
	Created time.Time    `json:"created"`
	Updated time.Time    `json:"updated"`
}
