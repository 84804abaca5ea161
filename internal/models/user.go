package models

import (
	"time"
)

// Roles decide the capability set at the auth boundary.
const (
	RoleMember   = "member"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

type User struct {
	ID               string    `json:"id" db:"id"`
	FullName         string    `json:"full_name" db:"full_name"`
	Email            string    `json:"email" db:"email"`
	Password         string    `json:"-" db:"password"`
	Phone            string    `json:"phone,omitempty" db:"phone"`
	Village          string    `json:"village,omitempty" db:"village"`
	District         string    `json:"district,omitempty" db:"district"`
	Regency          string    `json:"regency,omitempty" db:"regency"`
	AddressDetail    string    `json:"address_detail,omitempty" db:"address_detail"`
	Role             string    `json:"role" db:"role"`
	QRData           string    `json:"qr_data,omitempty" db:"qr_data"`
	QRCode           string    `json:"qr_code,omitempty" db:"qr_code"` // base64 PNG
	ProfileCompleted bool      `json:"profile_completed" db:"profile_completed"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
