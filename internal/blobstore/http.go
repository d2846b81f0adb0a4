package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ipfs/go-cid"

	"ciphercomm/internal/domain"
)

// HTTP talks to a pinning gateway: uploads go to an API endpoint that
// returns the content address, fetches read the public gateway path.
type HTTP struct {
	Base string
	HTTP *http.Client
}

func NewHTTP(base string) *HTTP {
	return &HTTP{Base: base, HTTP: http.DefaultClient}
}

func (c *HTTP) Upload(ctx context.Context, data []byte, name string) (cid.Cid, error) {
	body, err := json.Marshal(struct {
		Name string `json:"name"`
		Data []byte `json:"data"`
	}{Name: name, Data: data})
	if err != nil {
		return cid.Undef, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/upload", bytes.NewReader(body))
	if err != nil {
		return cid.Undef, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return cid.Undef, fmt.Errorf("blobstore: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return cid.Undef, fmt.Errorf("blobstore: upload: %s", resp.Status)
	}
	var out struct {
		CID string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cid.Undef, err
	}
	parsed, err := cid.Decode(out.CID)
	if err != nil {
		return cid.Undef, fmt.Errorf("blobstore: gateway returned bad cid %q: %w", out.CID, err)
	}
	return parsed, nil
}

func (c *HTTP) Fetch(ctx context.Context, blobCID cid.Cid) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/ipfs/"+blobCID.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blobstore: fetch %s: %w", blobCID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("blobstore: fetch %s: %s", blobCID, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

var _ domain.BlobStore = (*HTTP)(nil)
