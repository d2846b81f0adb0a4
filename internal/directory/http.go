package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"ciphercomm/internal/domain"
)

// DefaultLookback bounds the event-log scan when direct lookup misses.
const DefaultLookback = 5000

type HTTP struct {
	Base     string
	HTTP     *http.Client
	Lookback int
}

func NewHTTP(base string) *HTTP {
	return &HTTP{Base: base, HTTP: http.DefaultClient, Lookback: DefaultLookback}
}

// Register publishes the party's reachable address. Re-registering the
// same party overwrites the previous entry.
func (c *HTTP) Register(ctx context.Context, party domain.PartyID, addr domain.PeerAddr) error {
	body, err := json.Marshal(struct {
		Party string `json:"party"`
		Addr  string `json:"addr"`
	}{Party: string(party), Addr: string(addr)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/peers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("directory: register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory: register: %s", resp.Status)
	}
	return nil
}

// Resolve looks up the party's registered address, consulting the
// event log if the direct lookup comes back empty.
func (c *HTTP) Resolve(ctx context.Context, party domain.PartyID) (domain.PeerAddr, error) {
	addr, err := c.lookup(ctx, party)
	if err == nil && addr != "" {
		return addr, nil
	}
	if err != nil && !errors.Is(err, domain.ErrPeerNotFound) {
		return "", err
	}
	return c.scanEvents(ctx, party)
}

func (c *HTTP) lookup(ctx context.Context, party domain.PartyID) (domain.PeerAddr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.Base+"/peers/"+url.PathEscape(string(party)), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory: resolve: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrPeerNotFound
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("directory: resolve: %s", resp.Status)
	}
	var out struct {
		Addr string `json:"addr"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Addr == "" {
		return "", domain.ErrPeerNotFound
	}
	return domain.PeerAddr(out.Addr), nil
}

// scanEvents walks the registration log newest-first within the
// lookback window and returns the most recent address for the party.
func (c *HTTP) scanEvents(ctx context.Context, party domain.PartyID) (domain.PeerAddr, error) {
	q := url.Values{}
	q.Set("lookback", fmt.Sprint(c.Lookback))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.Base+"/events?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory: events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("directory: events: %s", resp.Status)
	}
	var events []struct {
		Party string `json:"party"`
		Addr  string `json:"addr"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return "", err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if domain.PartyID(events[i].Party) == party && events[i].Addr != "" {
			return domain.PeerAddr(events[i].Addr), nil
		}
	}
	return "", domain.ErrPeerNotFound
}

var _ domain.Directory = (*HTTP)(nil)
