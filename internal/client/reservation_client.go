package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	models "github.com/jetbridge/checkin/internal"
)

// Client talks to the airline reservation system and returns the raw
// itinerary legs for a confirmation number.
type Client struct {
	httpClient HTTPClient
	baseURL    string
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Option func(*Client)

var (
	ErrNotFound      error = errors.New("reservation not found")
	ErrBadStatusCode error = errors.New("invalid status code from reservation api")
)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://mobile.example-air.com/api/v1",
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetReservation fetches the itinerary for a reservation. The passenger
// name is part of the lookup key, not just the confirmation number.
func (c *Client) GetReservation(ctx context.Context, reservation models.Reservation) (*models.Itinerary, error) {
	u := fmt.Sprintf("%s/reservations/%s?%s",
		c.baseURL,
		url.PathEscape(reservation.ConfirmationNumber),
		url.Values{
			"first_name": []string{reservation.FirstName},
			"last_name":  []string{reservation.LastName},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ErrBadStatusCode
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var itinerary models.Itinerary
	if err := json.Unmarshal(body, &itinerary); err != nil {
		return nil, err
	}
	return &itinerary, nil
}
