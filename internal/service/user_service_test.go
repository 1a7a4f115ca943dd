package service

import (
	"context"
	"errors"
	"testing"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_Sync(t *testing.T) {
	ctx := context.Background()
	identity := &models.Identity{ID: "u-1", Email: "a@example.com", Phone: "555"}

	t.Run("ExistingUser", func(t *testing.T) {
		store := new(mockStore)
		svc := NewUserService(store, nil)
		store.On("GetUserByID", ctx, "u-1").Return(&models.User{ID: "u-1", IsAdmin: true}, nil).Once()

		u, err := svc.Sync(ctx, identity)
		require.NoError(t, err)
		assert.True(t, u.IsAdmin)
		store.AssertNotCalled(t, "InsertUserIfNotExists", mock.Anything, mock.Anything)
	})

	t.Run("CreatesMissingUser", func(t *testing.T) {
		store := new(mockStore)
		svc := NewUserService(store, nil)
		store.On("GetUserByID", ctx, "u-1").Return(nil, domain.ErrNotFound).Once()
		store.On("InsertUserIfNotExists", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.ID == "u-1" && u.Email == "a@example.com" && u.Phone == "555" && !u.IsAdmin
		})).Return(true, nil).Once()
		store.On("GetUserByID", ctx, "u-1").Return(&models.User{ID: "u-1", Email: "a@example.com"}, nil).Once()

		u, err := svc.Sync(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", u.Email)
		store.AssertExpectations(t)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := new(mockStore)
		svc := NewUserService(store, nil)
		store.On("GetUserByID", ctx, "u-1").Return(nil, errors.New("boom")).Once()

		_, err := svc.Sync(ctx, identity)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("NoIdentity", func(t *testing.T) {
		svc := NewUserService(new(mockStore), nil)
		_, err := svc.Sync(ctx, nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	identity := &models.Identity{ID: "u-1", Email: "a@example.com"}

	t.Run("PhoneRequired", func(t *testing.T) {
		svc := NewUserService(new(mockStore), nil)
		_, err := svc.Register(ctx, identity, "   ")
		assert.ErrorIs(t, err, ErrBadRequest)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "phone", verr.Field)
	})

	t.Run("InsertsOnce", func(t *testing.T) {
		store := new(mockStore)
		svc := NewUserService(store, nil)
		store.On("InsertUserIfNotExists", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Phone == "+91 555"
		})).Return(true, nil).Once()
		store.On("InsertUserIfNotExists", ctx, mock.Anything).Return(false, nil).Once()

		created, err := svc.Register(ctx, identity, " +91 555 ")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.Register(ctx, identity, "+91 555")
		require.NoError(t, err)
		assert.False(t, created)
		store.AssertExpectations(t)
	})
}

func TestLoadProfile_Missing(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	store.On("GetUserByID", ctx, "ghost").Return(nil, domain.ErrNotFound)

	_, err := loadProfile(ctx, store, &models.Identity{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "User profile not found")
}
