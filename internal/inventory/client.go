// Package inventory reads stock snapshots from the external inventory
// collaborator. The snapshot is informational only: order creation never
// decrements stock, and a dead inventory service never blocks checkout.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// StatusUnknown is reported when the collaborator cannot answer.
const StatusUnknown = "unknown"

// Client reads per-product stock status.
type Client interface {
	// Snapshot returns the stock status for each product ID. Every
	// requested ID is present in the returned map; products the
	// collaborator does not know come back as StatusUnknown.
	Snapshot(ctx context.Context, productIDs []string) (map[string]string, error)
}

type snapshotRequest struct {
	ProductIDs []string `json:"productIds"`
}

type snapshotResponse struct {
	Items []struct {
		ProductID string `json:"productId"`
		Status    string `json:"status"`
	} `json:"items"`
}

// restClient calls the inventory service over HTTP behind a circuit
// breaker, so a struggling collaborator fails fast instead of stalling
// every checkout.
type restClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates an HTTP inventory client.
func NewClient(baseURL string, logger zerolog.Logger) Client {
	logger = logger.With().Str("component", "inventory-client").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inventory",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("circuit", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("inventory circuit breaker state changed")
		},
	})

	return &restClient{
		http: resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(0), // the breaker decides, not the transport
		breaker: breaker,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Snapshot fetches stock statuses, degrading to StatusUnknown on any
// failure or open breaker.
func (c *restClient) Snapshot(ctx context.Context, productIDs []string) (map[string]string, error) {
	if len(productIDs) == 0 {
		return map[string]string{}, nil
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		var out snapshotResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(snapshotRequest{ProductIDs: productIDs}).
			SetResult(&out).
			Post(c.baseURL + "/api/stock/snapshot")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("inventory service returned %s", resp.Status())
		}
		return &out, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Int("products", len(productIDs)).Msg("inventory snapshot unavailable")
		return unknownStatuses(productIDs), err
	}

	out := raw.(*snapshotResponse)
	statuses := unknownStatuses(productIDs)
	for _, item := range out.Items {
		if _, requested := statuses[item.ProductID]; requested && item.Status != "" {
			statuses[item.ProductID] = item.Status
		}
	}

	return statuses, nil
}

func unknownStatuses(productIDs []string) map[string]string {
	statuses := make(map[string]string, len(productIDs))
	for _, id := range productIDs {
		statuses[id] = StatusUnknown
	}
	return statuses
}

// nopClient answers StatusUnknown for everything. Used when the
// inventory collaborator is disabled.
type nopClient struct{}

// NewNopClient returns a client that reports every product as unknown.
func NewNopClient() Client {
	return nopClient{}
}

func (nopClient) Snapshot(ctx context.Context, productIDs []string) (map[string]string, error) {
	return unknownStatuses(productIDs), nil
}
