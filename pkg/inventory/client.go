// Package inventory is the client for the inventory service, which owns
// property and unit records. The booking core resolves foreign property/unit
// references through it, creating local inventory records just in time when
// a channel reports a listing we have never seen.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the inventory service connection settings
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Client calls the inventory service over HTTP/JSON. Transient failures are
// retried with fixed backoff up to the configured attempt budget.
type Client struct {
	baseURL    string
	retries    int
	retryDelay time.Duration
	client     *http.Client
}

// NewClient creates a new inventory client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    config.BaseURL,
		retries:    config.Retries,
		retryDelay: config.RetryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Property is an inventory property record
type Property struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Location       *string `json:"location,omitempty"`
	ExternalSource *string `json:"external_source,omitempty"`
	ExternalID     *string `json:"external_id,omitempty"`
}

// Unit is an inventory rental-unit record
type Unit struct {
	ID             string  `json:"id"`
	PropertyID     string  `json:"property_id"`
	Title          string  `json:"title"`
	ExternalSource *string `json:"external_source,omitempty"`
	ExternalID     *string `json:"external_id,omitempty"`
}

// CreatePropertyRequest creates a property correlated with an external ref
type CreatePropertyRequest struct {
	Title          string  `json:"title"`
	Location       *string `json:"location,omitempty"`
	ExternalSource string  `json:"external_source"`
	ExternalID     string  `json:"external_id"`
}

// CreateUnitRequest creates a unit correlated with an external ref
type CreateUnitRequest struct {
	PropertyID     string   `json:"property_id"`
	Title          string   `json:"title"`
	Price          *float64 `json:"price,omitempty"`
	Currency       *string  `json:"currency,omitempty"`
	Amenities      []string `json:"amenities,omitempty"`
	Images         []string `json:"images,omitempty"`
	MinStayDays    *int     `json:"min_stay_days,omitempty"`
	Deposit        *float64 `json:"deposit,omitempty"`
	CheckInFrom    *string  `json:"check_in_from,omitempty"`
	CheckOutTill   *string  `json:"check_out_till,omitempty"`
	ExternalSource string   `json:"external_source"`
	ExternalID     string   `json:"external_id"`
}

// UpdateUnitRequest refreshes the listing fields of an existing unit
type UpdateUnitRequest struct {
	Title        string   `json:"title"`
	Price        *float64 `json:"price,omitempty"`
	Currency     *string  `json:"currency,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	Images       []string `json:"images,omitempty"`
	MinStayDays  *int     `json:"min_stay_days,omitempty"`
	Deposit      *float64 `json:"deposit,omitempty"`
	CheckInFrom  *string  `json:"check_in_from,omitempty"`
	CheckOutTill *string  `json:"check_out_till,omitempty"`
}

// ResolutionFailedError means a required inventory lookup or write could not
// complete within the retry budget.
type ResolutionFailedError struct {
	Op  string
	Err error
}

func (e *ResolutionFailedError) Error() string {
	return fmt.Sprintf("inventory resolution failed: %s: %v", e.Op, e.Err)
}

func (e *ResolutionFailedError) Unwrap() error {
	return e.Err
}

// GetPropertyByExternalRef resolves a property by its external reference.
// Returns nil when the inventory service has never seen the reference.
func (c *Client) GetPropertyByExternalRef(ctx context.Context, source, externalID string) (*Property, error) {
	var property Property
	found, err := c.get(ctx, fmt.Sprintf("/api/v1/properties/by-external-ref?source=%s&id=%s", source, externalID), &property)
	if err != nil {
		return nil, &ResolutionFailedError{Op: "get property " + source + ":" + externalID, Err: err}
	}
	if !found {
		return nil, nil
	}
	return &property, nil
}

// GetUnitByExternalRef resolves a unit by its external reference.
// Returns nil when the inventory service has never seen the reference.
func (c *Client) GetUnitByExternalRef(ctx context.Context, source, externalID string) (*Unit, error) {
	var unit Unit
	found, err := c.get(ctx, fmt.Sprintf("/api/v1/units/by-external-ref?source=%s&id=%s", source, externalID), &unit)
	if err != nil {
		return nil, &ResolutionFailedError{Op: "get unit " + source + ":" + externalID, Err: err}
	}
	if !found {
		return nil, nil
	}
	return &unit, nil
}

// CreateProperty creates a property record
func (c *Client) CreateProperty(ctx context.Context, req CreatePropertyRequest) (*Property, error) {
	var property Property
	if err := c.post(ctx, "/api/v1/properties", req, &property); err != nil {
		return nil, &ResolutionFailedError{Op: "create property " + req.ExternalSource + ":" + req.ExternalID, Err: err}
	}
	return &property, nil
}

// CreateUnit creates a unit record
func (c *Client) CreateUnit(ctx context.Context, req CreateUnitRequest) (*Unit, error) {
	var unit Unit
	if err := c.post(ctx, "/api/v1/units", req, &unit); err != nil {
		return nil, &ResolutionFailedError{Op: "create unit " + req.ExternalSource + ":" + req.ExternalID, Err: err}
	}
	return &unit, nil
}

// UpdateUnit refreshes the listing fields of an existing unit
func (c *Client) UpdateUnit(ctx context.Context, unitID string, req UpdateUnitRequest) (*Unit, error) {
	var unit Unit
	if err := c.post(ctx, "/api/v1/units/"+unitID, req, &unit); err != nil {
		return nil, &ResolutionFailedError{Op: "update unit " + unitID, Err: err}
	}
	return &unit, nil
}

// get performs a GET with retries. The bool result reports whether the
// resource exists; a 404 is not an error.
func (c *Client) get(ctx context.Context, path string, dest interface{}) (bool, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return false, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("inventory service returned %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return false, fmt.Errorf("inventory service returned %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return false, fmt.Errorf("failed to parse inventory response: %w", err)
		}
		return true, nil
	}

	return false, fmt.Errorf("retries exhausted: %w", lastErr)
}

// post performs a POST with retries on transport errors and 5xx responses.
func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("inventory service returned %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
			return fmt.Errorf("inventory service returned %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("failed to parse inventory response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("retries exhausted: %w", lastErr)
}
