package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// Client talks to a hub over JSON/HTTP.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a client for the hub at base. A nil hc uses
// http.DefaultClient.
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{Base: base, HTTP: hc}
}

var _ domain.HubClient = (*Client)(nil)

func (c *Client) Heartbeat(ctx context.Context, key domain.PeerKey, p domain.Presence) error {
	return c.post(ctx, "/presence/"+url.PathEscape(key.String()), p, nil)
}

func (c *Client) Presence(ctx context.Context, key domain.PeerKey) (domain.Presence, error) {
	var out domain.Presence
	if err := c.getJSON(ctx, "/presence/"+url.PathEscape(key.String()), &out); err != nil {
		return domain.Presence{}, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, "/msg/"+url.PathEscape(env.To.String()), env, nil)
}

func (c *Client) FetchMessages(ctx context.Context, key domain.PeerKey, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(key.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *Client) AckMessages(ctx context.Context, key domain.PeerKey, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(key.String())+"/ack", ackRequest{Count: count}, nil)
}

func (c *Client) FetchReceipts(ctx context.Context, key domain.PeerKey) ([]domain.Receipt, error) {
	var out []domain.Receipt
	if err := c.getJSON(ctx, "/receipts/"+url.PathEscape(key.String()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("hub post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("hub get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
