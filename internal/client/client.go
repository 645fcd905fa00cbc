// Package client provides the inter-service HTTP clients. Every
// outbound call runs under the circuit breaker of its target service:
// an open circuit fails the call fast so request handling never piles
// up behind a dead dependency.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/breaker"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/utils"
)

// ServiceClient makes JSON calls against one downstream service.
type ServiceClient struct {
	serviceName string
	resource    string // noun used in 404 messages, e.g. "Room"
	baseURL     string
	httpClient  *http.Client
	breaker     *breaker.Breaker
	token       func() string
}

// New builds a client for the named service. The breaker comes from
// the process-wide registry so all callers of the same dependency share
// its state.
func New(serviceName, resource, baseURL string, timeout time.Duration, registry *breaker.Registry) *ServiceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ServiceClient{
		serviceName: serviceName,
		resource:    resource,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     registry.Get(serviceName),
	}
}

// WithToken sets a bearer token source for outbound calls. Downstream
// routes are JWT-guarded, so services authenticate with a short-lived
// service-role token minted per call.
func (c *ServiceClient) WithToken(token func() string) *ServiceClient {
	c.token = token
	return c
}

// ServiceToken returns a token source minting short-lived service-role
// tokens signed with the shared secret. Minting per call keeps expiry
// handling out of the client.
func ServiceToken(secret string) func() string {
	return func() string {
		tok, err := utils.NewAccessToken(secret, 0, model.RoleService, 5)
		if err != nil {
			return ""
		}
		return tok.Token
	}
}

// getJSON performs a breaker-protected GET and decodes the JSON body
// into dest. Non-2xx statuses become AppErrors: 404 maps to NotFound
// without tripping the breaker, 5xx and transport failures count as
// breaker failures.
func (c *ServiceClient) getJSON(ctx context.Context, path string, dest any) error {
	var (
		status int
		body   []byte
	)
	err := c.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		if c.token != nil {
			req.Header.Set("Authorization", "Bearer "+c.token())
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if status >= 500 {
			return fmt.Errorf("%s returned status %d", c.serviceName, status)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok {
			return appErr
		}
		return apperror.Unavailable(c.serviceName)
	}
	switch {
	case status == http.StatusNotFound:
		return apperror.NotFound(c.resource)
	case status >= 400:
		return apperror.Internal(fmt.Sprintf("%s rejected the request", c.serviceName), fmt.Errorf("status %d", status))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return apperror.Internal(fmt.Sprintf("invalid response from %s", c.serviceName), err)
	}
	return nil
}

// roomPayload is the wire shape of a room returned by the rooms service.
type roomPayload struct {
	ID         uint64   `json:"id"`
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Floor      *int     `json:"floor"`
	Building   *string  `json:"building"`
	Location   *string  `json:"location"`
	Equipment  []string `json:"equipment"`
	Amenities  []string `json:"amenities"`
	Status     string   `json:"status"`
	HourlyRate *uint32  `json:"hourly_rate_cents"`
	ImageURL   *string  `json:"image_url"`
}

func (p roomPayload) toModel() model.Room {
	return model.Room{
		ID:         p.ID,
		Name:       p.Name,
		Capacity:   p.Capacity,
		Floor:      p.Floor,
		Building:   p.Building,
		Location:   p.Location,
		Equipment:  p.Equipment,
		Amenities:  p.Amenities,
		Status:     p.Status,
		HourlyRate: p.HourlyRate,
		ImageURL:   p.ImageURL,
	}
}

// RoomClient resolves rooms from the rooms service. It satisfies the
// booking engine's RoomDirectory interface.
type RoomClient struct {
	*ServiceClient
}

// NewRoomClient builds the rooms-service client.
func NewRoomClient(baseURL string, timeout time.Duration, registry *breaker.Registry) *RoomClient {
	return &RoomClient{ServiceClient: New("rooms-service", "Room", baseURL, timeout, registry)}
}

// GetRoom fetches one room by id.
func (c *RoomClient) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	var p roomPayload
	if err := c.getJSON(ctx, fmt.Sprintf("/api/rooms/%d", id), &p); err != nil {
		return model.Room{}, err
	}
	return p.toModel(), nil
}

// ListAvailableRooms fetches every room whose status is available.
func (c *RoomClient) ListAvailableRooms(ctx context.Context) ([]model.Room, error) {
	var payload struct {
		Rooms []roomPayload `json:"rooms"`
	}
	if err := c.getJSON(ctx, "/api/rooms?status=available", &payload); err != nil {
		return nil, err
	}
	out := make([]model.Room, 0, len(payload.Rooms))
	for _, p := range payload.Rooms {
		out = append(out, p.toModel())
	}
	return out, nil
}

// UserClient resolves users from the users service.
type UserClient struct {
	*ServiceClient
}

// NewUserClient builds the users-service client.
func NewUserClient(baseURL string, timeout time.Duration, registry *breaker.Registry) *UserClient {
	return &UserClient{ServiceClient: New("users-service", "User", baseURL, timeout, registry)}
}

// UserSummary is the subset of user fields exchanged between services.
type UserSummary struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// GetUser fetches one user by id.
func (c *UserClient) GetUser(ctx context.Context, id uint64) (UserSummary, error) {
	var u UserSummary
	err := c.getJSON(ctx, fmt.Sprintf("/api/users/%d", id), &u)
	return u, err
}
