package models

import (
	"database/sql/driver"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// PermissionSet is stored as text[] on postgres and as its text literal elsewhere.
type PermissionSet []string

func (PermissionSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (p PermissionSet) Value() (driver.Value, error) {
	if p == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(p).Value()
}

func (p *PermissionSet) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*p = PermissionSet(arr)
	return nil
}

type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"   json:"id"`
	Email        string        `gorm:"uniqueIndex;not null"   json:"email"`
	PasswordHash string        `gorm:"not null"               json:"-"`
	FullName     string        `gorm:"not null"               json:"full_name"`
	IsActive     bool          `gorm:"not null"               json:"is_active"`
	IsVerified   bool          `gorm:"not null"               json:"is_verified"`
	Role         string        `gorm:"index"                  json:"role,omitempty"`
	Permissions  PermissionSet `gorm:"not null"               json:"permissions"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SetRole overwrites the role and its materialized permissions.
func (u *User) SetRole(name string, permissions []string) {
	u.Role = name
	u.Permissions = PermissionSet(slices.Clone(permissions))
}

type Role struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"uniqueIndex;not null" json:"name"`
	Description string        `json:"description"`
	Permissions PermissionSet `gorm:"not null"             json:"permissions"`
	IsSystem    bool          `gorm:"not null"             json:"is_system"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	Resource    string    `gorm:"index;not null"       json:"resource"`
	Action      string    `gorm:"not null"             json:"action"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Permission) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
