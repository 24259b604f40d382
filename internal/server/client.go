package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Client talks to a running server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr ("host:port" or a full http URL).
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		base: strings.TrimSuffix(addr, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// State returns the session snapshot.
func (c *Client) State(ctx context.Context) (playback.State, error) {
	var s playback.State
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &s)
	return s, err
}

// Catalog lists the server's catalog.
func (c *Client) Catalog(ctx context.Context) ([]playback.Track, error) {
	var tracks []playback.Track
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &tracks)
	return tracks, err
}

// Command sends start, pause, stop or toggle and returns the resulting state.
func (c *Client) Command(ctx context.Context, name string) (playback.State, error) {
	var s playback.State
	err := c.do(ctx, http.MethodPost, "/api/"+url.PathEscape(name), nil, &s)
	return s, err
}

// Load loads a catalog track by id.
func (c *Client) Load(ctx context.Context, id int64) (playback.State, error) {
	var s playback.State
	err := c.do(ctx, http.MethodPost, "/api/load", playback.Track{ID: id}, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return errors.New(resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Watch streams facet messages to fn until ctx is done or the server
// closes the socket. A normal close returns nil.
func (c *Client) Watch(ctx context.Context, fn func(Message)) error {
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fn(m)
	}
}
