package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/chachabrian/unipool-backend/internal/database"
	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/chachabrian/unipool-backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MaxCarImageSize = 5 << 20
	carImageFolder  = "cars"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Profile is the account as its owner sees it.
type Profile struct {
	models.User
	CarImageURL string `json:"carImageUrl,omitempty"`
	Rating      Rating `json:"rating"`
}

type AccountService struct {
	db         *gorm.DB
	images     ImageStore
	adminEmail string
}

func NewAccountService(db *gorm.DB, images ImageStore, adminEmail string) *AccountService {
	return &AccountService{db: db, images: images, adminEmail: models.NormalizeEmail(adminEmail)}
}

func (s *AccountService) Register(ctx context.Context, fullName, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, newValidation("email", "email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, newValidation("email", "email is not valid")
	}
	if password == "" {
		return nil, newValidation("password", "password is required")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleStudent
	if s.adminEmail != "" && email == s.adminEmail {
		role = models.RoleAdmin
	}

	user := models.User{
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, newConflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"userId": user.ID, "role": user.Role}).Info("User registered")
	return &user, nil
}

// Authenticate returns ErrInvalidCredentials for both unknown emails and wrong passwords.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := findUserByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := utils.CheckPassword(user.PasswordHash, password)
	if err != nil {
		if errors.Is(err, utils.ErrMalformedHash) {
			logrus.WithField("userId", user.ID).Warn("Stored password hash is malformed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findUserByEmail(s.db.WithContext(ctx), email)
}

func (s *AccountService) GetProfile(ctx context.Context, email string) (*Profile, error) {
	db := s.db.WithContext(ctx)
	user, err := findUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	return s.profile(db, user)
}

func (s *AccountService) UpdateProfile(ctx context.Context, email, fullName string) (*Profile, error) {
	db := s.db.WithContext(ctx)
	user, err := findUserByEmail(db, email)
	if err != nil {
		return nil, err
	}

	user.FullName = strings.TrimSpace(fullName)
	if err := db.Model(user).Update("full_name", user.FullName).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.profile(db, user)
}

// SetCarImage stores a new car photo and removes the one it replaces.
func (s *AccountService) SetCarImage(ctx context.Context, email string, file *multipart.FileHeader) (*Profile, error) {
	if file == nil {
		return nil, newValidation("carImage", "no image uploaded")
	}
	if !allowedImageExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return nil, newValidation("carImage", "only .jpg, .jpeg, .png and .gif images are allowed")
	}
	if file.Size > MaxCarImageSize {
		return nil, newValidation("carImage", "image must be 5 MB or smaller")
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	db := s.db.WithContext(ctx)
	user, err := findUserByEmail(db, email)
	if err != nil {
		return nil, err
	}

	ref, err := s.images.Upload(file, carImageFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to store car image: %w", err)
	}

	previous := user.CarImagePath
	if err := db.Model(user).Update("car_image_path", ref).Error; err != nil {
		if delErr := s.images.Delete(ref); delErr != nil {
			logrus.WithError(delErr).Warn("Failed to remove orphaned car image")
		}
		return nil, fmt.Errorf("failed to save car image: %w", err)
	}
	user.CarImagePath = &ref

	if previous != nil && *previous != ref {
		if err := s.images.Delete(*previous); err != nil {
			logrus.WithError(err).WithField("ref", *previous).Warn("Failed to delete previous car image")
		}
	}
	return s.profile(db, user)
}

func (s *AccountService) RemoveCarImage(ctx context.Context, email string) (*Profile, error) {
	db := s.db.WithContext(ctx)
	user, err := findUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if user.CarImagePath == nil {
		return s.profile(db, user)
	}

	previous := *user.CarImagePath
	if err := db.Model(user).Update("car_image_path", gorm.Expr("NULL")).Error; err != nil {
		return nil, fmt.Errorf("failed to remove car image: %w", err)
	}
	user.CarImagePath = nil

	if s.images != nil {
		if err := s.images.Delete(previous); err != nil {
			logrus.WithError(err).WithField("ref", previous).Warn("Failed to delete car image")
		}
	}
	return s.profile(db, user)
}

func (s *AccountService) profile(db *gorm.DB, user *models.User) (*Profile, error) {
	ratings, err := driverRatings(db, []uint{user.ID})
	if err != nil {
		return nil, err
	}
	p := &Profile{User: *user, Rating: ratings[user.ID]}
	if user.CarImagePath != nil && s.images != nil {
		p.CarImageURL = s.images.URL(*user.CarImagePath)
	}
	return p, nil
}

// findUserByEmail looks the email up in its canonical form.
func findUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, newNotFound("user", nil)
	}
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user", email)
	}
	return &user, nil
}
