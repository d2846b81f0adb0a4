package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ciphercomm/internal/domain"
)

type HTTP struct {
	Base string
	HTTP *http.Client
}

func NewHTTP(base string) *HTTP {
	return &HTTP{Base: base, HTTP: http.DefaultClient}
}

// SubmitAnchor posts the digest and blocks until the bridge confirms
// the anchoring transaction or rejects it.
func (c *HTTP) SubmitAnchor(ctx context.Context, hash domain.Digest) (domain.TxHash, error) {
	body, err := json.Marshal(struct {
		Hash string `json:"hash"`
	}{Hash: hash.String()})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ledger: anchor rejected: %s", resp.Status)
	}
	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return domain.TxHash(out.TxHash), nil
}

// IsAnchored queries the verification predicate. Transport failures and
// non-2xx responses surface as ErrLedgerUnavailable so callers treat
// them as unknown rather than a definitive no.
func (c *HTTP) IsAnchored(ctx context.Context, hash domain.Digest) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.Base+"/anchors/"+url.PathEscape(hash.String()), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("%w: %s", domain.ErrLedgerUnavailable, resp.Status)
	}
	var out struct {
		Anchored bool `json:"anchored"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Anchored, nil
}

var _ domain.Ledger = (*HTTP)(nil)
