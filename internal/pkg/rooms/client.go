package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL       = "https://api.daily.co/v1"
	roomExpirationSecs   = 1800
	maxTokenTTLSecs      = 900
	defaultClientTimeout = 15 * time.Second
)

// Room is the subset of the video provider's room resource we consume.
type Room struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Expiration int64  `json:"exp,omitempty"`
}

// Client is a thin wrapper over the external video-calling API. Sessions are
// created, inspected, tokenized, and deleted here; everything else about the
// call transport is the vendor's concern.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// NewClientWithBaseURL is used by tests and self-hosted gateways.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// CreateRoom provisions a public room expiring 30 minutes out.
func (c *Client) CreateRoom(ctx context.Context) (*Room, error) {
	payload := map[string]any{
		"name":    "room-" + uuid.NewString(),
		"privacy": "public",
		"properties": map[string]any{
			"exp":             time.Now().Unix() + roomExpirationSecs,
			"enable_chat":     true,
			"start_video_off": false,
		},
	}

	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms", payload, &room); err != nil {
		return nil, err
	}
	if room.Name == "" || room.URL == "" {
		return nil, fmt.Errorf("rooms API response is missing room fields")
	}
	return &room, nil
}

// GetRoom fetches a room, primarily for its expiration.
func (c *Client) GetRoom(ctx context.Context, name string) (*Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+name, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom removes a room at the provider.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+name, nil, nil)
}

// CreateMeetingToken issues a participant token bounded to the room's
// remaining lifetime.
func (c *Client) CreateMeetingToken(ctx context.Context, roomName string, expiration int64) (string, error) {
	payload := map[string]any{
		"properties": map[string]any{
			"room_name": roomName,
			"exp":       expiration,
		},
	}

	var response struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/meeting-tokens", payload, &response); err != nil {
		return "", err
	}
	if response.Token == "" {
		return "", fmt.Errorf("rooms API returned an empty meeting token")
	}
	return response.Token, nil
}

// TokenExpiration bounds a participant token to min(now + 15 minutes, room
// expiration). The second return is false when the room has already expired.
func TokenExpiration(nowEpochSeconds, roomExpiration int64) (int64, bool) {
	bounded := nowEpochSeconds + maxTokenTTLSecs
	if roomExpiration < bounded {
		bounded = roomExpiration
	}
	if bounded <= nowEpochSeconds {
		return 0, false
	}
	return bounded, true
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach rooms API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var upstream struct {
			Error string `json:"error"`
			Info  string `json:"info"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&upstream)
		message := upstream.Error
		if message == "" {
			message = upstream.Info
		}
		if message == "" {
			message = "rooms API returned an error"
		}
		return fmt.Errorf("rooms API %s %s failed (%d): %s", method, path, resp.StatusCode, message)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("rooms API returned invalid JSON: %w", err)
		}
	}
	return nil
}
