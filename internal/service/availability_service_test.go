package service

import (
	"context"
	"testing"

	"consultdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityService(t *testing.T) {
	ctx := context.Background()
	consultations, db, _ := newSQLiteService(t)
	svc := NewAvailabilityService(db, db, nil)
	admin := addUser(t, db, "admin", true)
	alice := addUser(t, db, "alice", false)

	t.Run("AdminOnly", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, "2024-06-01", "10 AM")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.Create(ctx, &models.Identity{ID: "nobody"}, "2024-06-01", "10 AM")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.Create(ctx, nil, "2024-06-01", "10 AM")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, svc.Delete(ctx, alice, "x"), ErrForbidden)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, "", "10 AM")
		assert.ErrorIs(t, err, ErrBadRequest)
		_, err = svc.Create(ctx, admin, "tomorrow", "10 AM")
		assert.ErrorIs(t, err, ErrBadRequest)
		assert.ErrorIs(t, svc.Delete(ctx, admin, ""), ErrBadRequest)
		assert.ErrorIs(t, svc.Delete(ctx, admin, "missing"), ErrNotFound)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		free, err := svc.Create(ctx, admin, "2024-06-02", "11 AM")
		require.NoError(t, err)
		booked, err := svc.Create(ctx, admin, "2024-06-01", "10 AM")
		require.NoError(t, err)

		in := validInput("alice")
		in.SlotID = booked.ID
		_, err = consultations.Create(ctx, alice, in)
		require.NoError(t, err)

		slots, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, booked.ID, slots[0].ID)

		assert.ErrorIs(t, svc.Delete(ctx, admin, booked.ID), ErrPreconditionFailed)
		require.NoError(t, svc.Delete(ctx, admin, free.ID))
	})
}
