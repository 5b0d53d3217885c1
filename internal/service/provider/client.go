// Package provider is the HTTP client for the external delivery-coverage
// provider.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/constants"
)

const (
	retryInterval = 500 * time.Millisecond
	retryMax      = 3
)

type Client interface {
	// FetchCities returns the full current coverage tree: cities with
	// nested districts, areas and geofences.
	FetchCities(ctx context.Context) ([]*dto.ProviderCity, error)
	// FetchCity returns one city subtree by provider id.
	FetchCity(ctx context.Context, externalID string) (*dto.ProviderCity, error)
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) Client {
	return &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) FetchCities(ctx context.Context) ([]*dto.ProviderCity, error) {
	var cities []*dto.ProviderCity
	if err := c.getJSON(ctx, c.baseURL+"/v1/coverage/cities", &cities); err != nil {
		return nil, fmt.Errorf("fetch cities: %v: %w", err, constants.ErrExternalFetch)
	}

	return cities, nil
}

func (c *client) FetchCity(ctx context.Context, externalID string) (*dto.ProviderCity, error) {
	var city dto.ProviderCity
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/coverage/cities/%s", c.baseURL, externalID), &city); err != nil {
		return nil, fmt.Errorf("fetch city %s: %v: %w", externalID, err, constants.ErrExternalFetch)
	}

	return &city, nil
}

func (c *client) getJSON(ctx context.Context, url string, dest interface{}) error {
	var body []byte

	err := backoff.Retry(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if reqErr != nil {
				return backoff.Permanent(reqErr)
			}

			resp, httpErr := c.httpClient.Do(req)
			if httpErr != nil {
				return fmt.Errorf("http.Get: %w", httpErr)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
			}

			var readErr error
			body, readErr = io.ReadAll(resp.Body)
			if readErr != nil {
				return fmt.Errorf("read body: %w", readErr)
			}

			return nil
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), retryMax),
			ctx,
		),
	)
	if err != nil {
		return err
	}

	if err = sonic.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
