package connection_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/smsledger/internal/connection"
)

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := connection.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	conn := &connection.Connection{
		UserID:      userID,
		PhoneNumber: "+919876543210",
		IsActive:    true,
		Settings:    connection.Settings{MinConfidence: 0.7, Categories: []string{"Shopping"}},
	}
	require.NoError(t, s.Put(ctx, conn))

	conn.Settings.Categories[0] = "Changed"

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shopping"}, got.Settings.Categories)

	got.IsActive = false

	again, err := s.FindActiveByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.True(t, again.IsActive)
}

func TestMemoryStore_IncrementProcessed(t *testing.T) {
	s := connection.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	assert.ErrorIs(t, s.IncrementProcessed(ctx, userID, time.Now()), connection.ErrNotFound)

	require.NoError(t, s.Put(ctx, &connection.Connection{UserID: userID, PhoneNumber: "+919876543210", IsActive: true}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementProcessed(ctx, userID, time.Now()))
		}()
	}

	wg.Wait()

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.TotalProcessed)
	assert.NotNil(t, got.LastSyncTime)
}

func TestMemoryStore_ConcurrentClaims(t *testing.T) {
	s := connection.NewMemoryStore()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := s.Put(ctx, &connection.Connection{UserID: uuid.New(), PhoneNumber: "+919876543210", IsActive: true})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()

				return
			}

			assert.ErrorIs(t, err, connection.ErrPhoneClaimed)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, winners)
}
