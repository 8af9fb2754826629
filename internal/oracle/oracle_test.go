package oracle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/meridian-protocol/sce/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Initialize("error")
	os.Exit(m.Run())
}

func TestStaticSourceUnknownFeed(t *testing.T) {
	s := NewStaticSource()

	_, _, err := s.LatestPrice("ETH-USD")
	require.ErrorIs(t, err, ErrUnknownFeed)
}

func TestStaticSourceScalesWholeDollars(t *testing.T) {
	s := NewStaticSource()
	s.SetUSDPrice("ETH-USD", 2000)

	price, observed, err := s.LatestPrice("ETH-USD")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2000_0000_0000), price)
	require.False(t, observed.IsZero())
}

func serveFeed(t *testing.T, payload feedResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
}

func TestFeedClientParsesValidPayload(t *testing.T) {
	now := time.Now().Unix()
	srv := serveFeed(t, feedResponse{FeedID: "ETH-USD", Price: "200000000000", Timestamp: now})
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, 0)
	require.NoError(t, err)

	price, observed, err := client.LatestPrice("ETH-USD")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(200000000000), price)
	require.Equal(t, now, observed.Unix())
}

func TestFeedClientRejectsStaleQuote(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour).Unix()
	srv := serveFeed(t, feedResponse{FeedID: "ETH-USD", Price: "200000000000", Timestamp: old})
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, time.Minute)
	require.NoError(t, err)

	_, _, err = client.LatestPrice("ETH-USD")
	require.ErrorIs(t, err, ErrStalePrice)
}

func TestFeedClientRejectsFeedMismatch(t *testing.T) {
	srv := serveFeed(t, feedResponse{FeedID: "BTC-USD", Price: "100000000000", Timestamp: time.Now().Unix()})
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, 0)
	require.NoError(t, err)

	_, _, err = client.LatestPrice("ETH-USD")
	require.ErrorIs(t, err, ErrInvalidPriceData)
}

func TestFeedClientRejectsUnparseablePrice(t *testing.T) {
	srv := serveFeed(t, feedResponse{FeedID: "ETH-USD", Price: "2000.55", Timestamp: time.Now().Unix()})
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, 0)
	require.NoError(t, err)

	_, _, err = client.LatestPrice("ETH-USD")
	require.ErrorIs(t, err, ErrInvalidPriceData)
}

func TestFeedClientUnknownFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, 0)
	require.NoError(t, err)

	_, _, err = client.LatestPrice("SHIB-USD")
	require.ErrorIs(t, err, ErrUnknownFeed)
}

func TestFeedClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		payload := feedResponse{FeedID: "ETH-USD", Price: "200000000000", Timestamp: time.Now().Unix()}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer srv.Close()

	client, err := NewFeedClient(srv.URL, 0)
	require.NoError(t, err)

	price, _, err := client.LatestPrice("ETH-USD")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(200000000000), price)
	require.Equal(t, int32(3), calls.Load())
}

func TestNewFeedClientRequiresBaseURL(t *testing.T) {
	_, err := NewFeedClient("   ", 0)
	require.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestFeedClientRejectsEmptyFeedID(t *testing.T) {
	client, err := NewFeedClient("http://localhost:1", 0)
	require.NoError(t, err)

	_, _, err = client.LatestPrice("  ")
	require.ErrorIs(t, err, ErrUnknownFeed)
}
