package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-service/internal/models"
)

func TestSnapshotCaching(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		json.NewEncoder(w).Encode([]models.StockLevel{
			{ItemID: "rice", Name: "Rice", UnitPrice: 5000, Available: 5},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute)
	ctx := context.Background()

	level, err := client.StockFor(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, 5, level.Available)

	_, err = client.StockFor(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "second read within TTL hits the cache")

	_, err = client.StockFor(ctx, "beans")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestSnapshotServesStaleCacheWhenLedgerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.StockLevel{
			{ItemID: "rice", Name: "Rice", UnitPrice: 5000, Available: 5},
		})
	}))

	client := NewClient(srv.URL, "", time.Second, time.Nanosecond)
	ctx := context.Background()

	_, err := client.Snapshot(ctx)
	require.NoError(t, err)

	srv.Close()
	time.Sleep(time.Millisecond)

	level, err := client.StockFor(ctx, "rice")
	require.NoError(t, err, "offline cart keeps working against the last snapshot")
	assert.Equal(t, 5, level.Available)
}
