package repo

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/auth_service/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExist   = errors.New("user already exist")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrUnavailable        = errors.New("store unavailable")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
