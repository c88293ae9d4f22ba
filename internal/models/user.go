package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Role is the account role. The zero value is RoleStudent.
type Role uint8

const (
	RoleStudent Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole accepts the persisted role names, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Value stores the role by name so the column stays readable.
func (r Role) Value() (driver.Value, error) {
	if r != RoleStudent && r != RoleAdmin {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return r.String(), nil
}

func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	if r != RoleStudent && r != RoleAdmin {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (Role) GormDataType() string {
	return "varchar(16)"
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"column:full_name;not null;default:''" json:"fullName"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         Role      `gorm:"column:role;not null" json:"role"`
	CarImagePath *string   `gorm:"column:car_image_path" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email when no name was given at registration.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.FullName) == "" {
		return u.Email
	}
	return u.FullName
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail is the canonical form used for storage and every lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
