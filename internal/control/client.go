package control

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Host string
}

// Ping blocks until the server responds or ctx is done.
func (c *Client) Ping(ctx context.Context) error {
	delay := 100 * time.Millisecond

	tick := time.NewTicker(delay)
	defer tick.Stop()

	for {
		code, err := c.ping(ctx)

		switch {
		case err != nil:
			tick.Reset(delay) // network error; try again
		case code == http.StatusOK:
			return nil // ready
		default:
			return fmt.Errorf("%d %s", code, http.StatusText(code))
		}

		select {
		case <-tick.C:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://%s/ping", c.Host), nil)

	if err != nil {
		return 0, fmt.Errorf("cannot create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return 0, err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return resp.StatusCode, nil
}

// Subscribe sends every event received from the server to ch until the
// server goes away or ctx is done. Subscribe closes ch when it returns.
func (c *Client) Subscribe(ctx context.Context, ch chan<- Event) error {
	defer close(ch)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		fmt.Sprintf("ws://%s/subscribe", c.Host), nil)

	if err != nil {
		return fmt.Errorf("cannot connect: %w", err)
	}

	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblock ReadJSON
		case <-stop:
		}
	}()

	for {
		var evt Event

		switch err := conn.ReadJSON(&evt); {
		case ctx.Err() != nil:
			return ctx.Err()
		case websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
			return nil
		case err != nil:
			return err
		default:
			ch <- evt
		}
	}
}
