package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart file header the way gin's FormFile returns one.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("carImage", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["carImage"][0]
}

func TestRegisterNormalizesAndAssignsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, "  Ana  ", "  Ana@Uni.EDU ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ana@uni.edu", u.Email)
	assert.Equal(t, "Ana", u.FullName)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.NotEqual(t, "secret", u.PasswordHash)

	admin, err := f.accounts.Register(ctx, "", "ADMIN@unipool.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	var stored models.User
	require.NoError(t, f.db.First(&stored, admin.ID).Error)
	assert.True(t, stored.IsAdmin())
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "", "", "secret")
	assert.True(t, IsValidation(err))

	_, err = f.accounts.Register(ctx, "", "ana@uni.edu", "")
	assert.True(t, IsValidation(err))

	_, err = f.accounts.Register(ctx, "", "ana@uni.edu", "secret")
	require.NoError(t, err)
	_, err = f.accounts.Register(ctx, "", "ANA@uni.edu", "other")
	assert.True(t, IsConflict(err))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Register(ctx, "Ana", "ana@uni.edu", "secret")
	require.NoError(t, err)

	u, err := f.accounts.Authenticate(ctx, "ANA@uni.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ana@uni.edu", u.Email)

	_, err = f.accounts.Authenticate(ctx, "ana@uni.edu", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = f.accounts.Authenticate(ctx, "nobody@uni.edu", "secret")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestProfileAndCarImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ana@uni.edu")

	profile, err := f.accounts.UpdateProfile(ctx, u.Email, " Ana Diaz ")
	require.NoError(t, err)
	assert.Equal(t, "Ana Diaz", profile.FullName)
	assert.Empty(t, profile.CarImageURL)

	_, err = f.accounts.SetCarImage(ctx, u.Email, fileHeader(t, "car.bmp", []byte("x")))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "carImage", verr.Field)

	big := fileHeader(t, "car.png", []byte(strings.Repeat("x", MaxCarImageSize+1)))
	_, err = f.accounts.SetCarImage(ctx, u.Email, big)
	assert.True(t, IsValidation(err))

	first, err := f.accounts.SetCarImage(ctx, u.Email, fileHeader(t, "car.JPG", []byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/cars/img-1.JPG", first.CarImageURL)

	second, err := f.accounts.SetCarImage(ctx, u.Email, fileHeader(t, "new.png", []byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/cars/img-2.png", second.CarImageURL)
	assert.Equal(t, []string{"cars/img-1.JPG"}, f.images.deleted)

	got, err := f.accounts.GetProfile(ctx, "ANA@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, second.CarImageURL, got.CarImageURL)

	removed, err := f.accounts.RemoveCarImage(ctx, u.Email)
	require.NoError(t, err)
	assert.Empty(t, removed.CarImageURL)
	assert.Equal(t, []string{"cars/img-1.JPG", "cars/img-2.png"}, f.images.deleted)

	var stored models.User
	require.NoError(t, f.db.First(&stored, u.ID).Error)
	assert.Nil(t, stored.CarImagePath)

	_, err = f.accounts.GetProfile(ctx, "ghost@uni.edu")
	assert.True(t, IsNotFound(err))
}
