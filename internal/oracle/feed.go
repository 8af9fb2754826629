/*

This file implements the live HTTP price source. Each collateral asset maps to
a feed identifier; the client fetches the latest quote for that feed from a
JSON price API, validates the payload strictly and rejects stale quotes.

Solvency decisions for real collateral ride on these numbers, so the client
fails hard on anything it cannot fully validate rather than guessing.

*/

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/meridian-protocol/sce/internal/logger"
)

var feedLogger = logger.GetForComponent("price_feed")

var (
	ErrInvalidPriceData = errors.New("invalid price data received")
	ErrFeedUnavailable  = errors.New("price feed unavailable")
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 10
)

// feedResponse is the wire format of the price API.
type feedResponse struct {
	FeedID    string `json:"feed_id"`
	Price     string `json:"price"`     // 8-decimal integer, as a decimal string
	Timestamp int64  `json:"timestamp"` // unix seconds of the observation
}

// FeedClient fetches latest prices over HTTP. It implements PriceSource.
type FeedClient struct {
	baseURL     string
	maxPriceAge time.Duration
	client      *http.Client
}

// NewFeedClient builds a live price client. maxPriceAge bounds how old a
// quote may be before it is rejected as stale; zero disables the check.
func NewFeedClient(baseURL string, maxPriceAge time.Duration) (*FeedClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is empty", ErrFeedUnavailable)
	}
	return &FeedClient{
		baseURL:     baseURL,
		maxPriceAge: maxPriceAge,
		client:      &http.Client{Timeout: TIMEOUT_SECONDS * time.Second},
	}, nil
}

// LatestPrice implements PriceSource. Transient transport errors are retried
// up to MAX_RETRIES times; validation errors are not retried.
func (c *FeedClient) LatestPrice(feedID string) (sdkmath.Int, time.Time, error) {
	if strings.TrimSpace(feedID) == "" {
		return sdkmath.ZeroInt(), time.Time{}, ErrUnknownFeed
	}

	endpoint := fmt.Sprintf("%s/v1/prices/%s", c.baseURL, url.PathEscape(feedID))

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		price, observed, err := c.fetchOnce(endpoint, feedID)
		if err == nil {
			return price, observed, nil
		}
		lastErr = err
		if errors.Is(err, ErrInvalidPriceData) || errors.Is(err, ErrStalePrice) || errors.Is(err, ErrUnknownFeed) {
			return sdkmath.ZeroInt(), time.Time{}, err
		}
		feedLogger.Warn().
			Err(err).
			Str("feedID", feedID).
			Int("attempt", attempt).
			Msg("Price fetch failed, retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: %w", ErrFeedUnavailable, lastErr)
}

func (c *FeedClient) fetchOnce(endpoint, feedID string) (sdkmath.Int, time.Time, error) {
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return sdkmath.ZeroInt(), time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return sdkmath.ZeroInt(), time.Time{}, ErrUnknownFeed
	}
	if resp.StatusCode != http.StatusOK {
		return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("unexpected status %d from price API", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sdkmath.ZeroInt(), time.Time{}, err
	}

	var payload feedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}
	return c.validate(payload, feedID)
}

// validate performs strict validation on a price payload before it is allowed
// anywhere near the solvency math.
func (c *FeedClient) validate(payload feedResponse, feedID string) (sdkmath.Int, time.Time, error) {
	if payload.FeedID != feedID {
		return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: feed mismatch, requested %s got %s",
			ErrInvalidPriceData, feedID, payload.FeedID)
	}
	if payload.Timestamp <= 0 {
		return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: invalid timestamp %d for %s",
			ErrInvalidPriceData, payload.Timestamp, feedID)
	}

	raw, ok := new(big.Int).SetString(strings.TrimSpace(payload.Price), 10)
	if !ok {
		return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: unparseable price %q for %s",
			ErrInvalidPriceData, payload.Price, feedID)
	}
	price := sdkmath.NewIntFromBigInt(raw)

	observed := time.Unix(payload.Timestamp, 0)
	if c.maxPriceAge > 0 {
		age := time.Since(observed)
		if age > c.maxPriceAge {
			feedLogger.Error().
				Str("feedID", feedID).
				Dur("age", age).
				Dur("maxAge", c.maxPriceAge).
				Msg("Rejecting stale price")
			return sdkmath.ZeroInt(), time.Time{}, fmt.Errorf("%w: %s is %s old", ErrStalePrice, feedID, age)
		}
	}

	return price, observed, nil
}
