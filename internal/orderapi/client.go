// Package orderapi is the HTTP client for the upstream order service, the
// single source of truth for order state and transition legality. This
// service only reads snapshots and requests transitions; it never decides
// them.
package orderapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"dinesync/internal/model"
)

// ErrNotFound marks an order id that does not resolve upstream. Terminal for
// the view: callers stop polling that id.
var ErrNotFound = errors.New("order not found")

// TransientError wraps everything that should keep prior state and retry:
// network failures, 5xx responses, malformed bodies.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be handled by retaining state and
// retrying.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type orderEnvelope struct {
	Success bool                 `json:"success"`
	Order   *model.OrderSnapshot `json:"order"`
	Message string               `json:"message"`
}

type orderListEnvelope struct {
	Success bool                  `json:"success"`
	Orders  []model.OrderSnapshot `json:"orders"`
	Message string                `json:"message"`
}

// FetchOrder returns the authoritative snapshot for one order id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*model.OrderSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%s", c.baseURL, url.PathEscape(orderID))

	var env orderEnvelope
	if err := c.getJSON(ctx, endpoint, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Order == nil {
		return nil, &TransientError{Err: errors.Errorf("order fetch rejected: %s", env.Message)}
	}
	return env.Order, nil
}

// ListOrders returns every snapshot for a restaurant, optionally restricted
// to a status subset. The whole list replaces the previous one per fetch.
func (c *Client) ListOrders(ctx context.Context, restaurantID string, statuses []model.Status) ([]model.OrderSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/restaurants/%s/orders", c.baseURL, url.PathEscape(restaurantID))
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		endpoint += "?status=" + url.QueryEscape(strings.Join(values, ","))
	}

	var env orderListEnvelope
	if err := c.getJSON(ctx, endpoint, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &TransientError{Err: errors.Errorf("order list rejected: %s", env.Message)}
	}
	if env.Orders == nil {
		env.Orders = []model.OrderSnapshot{}
	}
	return env.Orders, nil
}

// RequestTransition asks the order service to move an order to the target
// status. Success here means the request was accepted, not that the order is
// in that status; the next reconciliation confirms the authoritative result.
func (c *Client) RequestTransition(ctx context.Context, orderID string, target model.Status) error {
	endpoint := fmt.Sprintf("%s/api/orders/%s/status", c.baseURL, url.PathEscape(orderID))

	body, err := json.Marshal(map[string]string{"status": string(target)})
	if err != nil {
		return errors.Wrap(err, "marshal transition request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return errors.Wrap(err, "build transition request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: errors.Wrap(err, "transition request")}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode >= 500:
		return &TransientError{Err: errors.Errorf("order service returned %d", res.StatusCode)}
	case res.StatusCode >= 400:
		return errors.Errorf("transition rejected with %d", res.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: errors.Wrap(err, "order service request")}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode >= 500:
		return &TransientError{Err: errors.Errorf("order service returned %d", res.StatusCode)}
	case res.StatusCode >= 400:
		return &TransientError{Err: errors.Errorf("order service rejected request with %d", res.StatusCode)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &TransientError{Err: errors.Wrap(err, "decode order service response")}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
