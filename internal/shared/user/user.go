package user

import "time"

// Role — тип пользователя. В исходной системе роли были proxy-моделями
// с переопределенным save(); здесь это один enum плюс фабрики ниже.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleOwner  Role = "OWNER"
)

// ValidRole проверяет, что строка — одна из известных ролей
func ValidRole(r string) bool {
	switch Role(r) {
	case RoleRider, RoleDriver, RoleOwner:
		return true
	}
	return false
}

// User — principal: идентичность, привязываемая к соединению после
// аутентификации. PhoneNumber — логин-идентификатор.
type User struct {
	ID          string    `json:"id" db:"id"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	FirstName   string    `json:"first_name,omitempty" db:"first_name"`
	LastName    string    `json:"last_name,omitempty" db:"last_name"`
	Type        Role      `json:"type" db:"type"`
	IsStaff     bool      `json:"is_staff" db:"is_staff"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	DateJoined  time.Time `json:"date_joined" db:"date_joined"`
}

// NewRider создает пользователя с ролью RIDER
func NewRider(id, phoneNumber string) *User {
	return &User{
		ID:          id,
		PhoneNumber: phoneNumber,
		Type:        RoleRider,
		DateJoined:  time.Now().UTC(),
	}
}

// NewDriver создает пользователя с ролью DRIVER
func NewDriver(id, phoneNumber string) *User {
	return &User{
		ID:          id,
		PhoneNumber: phoneNumber,
		Type:        RoleDriver,
		DateJoined:  time.Now().UTC(),
	}
}

// NewOwner создает пользователя с ролью OWNER.
// Владельцу таксопарка доступна админка, поэтому is_staff = true.
func NewOwner(id, phoneNumber string) *User {
	return &User{
		ID:          id,
		PhoneNumber: phoneNumber,
		Type:        RoleOwner,
		IsStaff:     true,
		DateJoined:  time.Now().UTC(),
	}
}

// HasRole проверяет наличие роли
func (u *User) HasRole(r Role) bool {
	return u.Type == r
}

// Public — представление пользователя во внешних сообщениях
// (вложенные rider/driver объекты в broadcast поездки)
type Public struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Type        Role   `json:"type"`
}

// Public возвращает публичное представление
func (u *User) Public() *Public {
	return &Public{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Type:        u.Type,
	}
}
