package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"ciphercomm/internal/domain"
)

// Memory keeps blobs in process, addressed by CIDv1 over the raw codec.
type Memory struct {
	mu    sync.Mutex
	blobs map[cid.Cid][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[cid.Cid][]byte)}
}

func (m *Memory) Upload(ctx context.Context, data []byte, name string) (cid.Cid, error) {
	c, err := mint(data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	m.blobs[c] = append([]byte(nil), data...)
	m.mu.Unlock()
	return c, nil
}

func (m *Memory) Fetch(ctx context.Context, c cid.Cid) ([]byte, error) {
	m.mu.Lock()
	data, ok := m.blobs[c]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("blobstore: %s not found", c)
	}
	return append([]byte(nil), data...), nil
}

// mint derives the content address: sha2-256 multihash wrapped as a
// CIDv1 raw, the same shape public gateways serve.
func mint(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

var _ domain.BlobStore = (*Memory)(nil)
