package storageapi

import (
	"context"
	"net/http"
)

const metadataProvider = "system"

// ListBuckets returns all buckets of the project.
func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	var buckets []Bucket
	if err := c.doJSON(ctx, http.MethodGet, "/buckets", nil, nil, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// CreateBucket creates a bucket and returns it.
func (c *Client) CreateBucket(ctx context.Context, req CreateBucketRequest) (*Bucket, error) {
	var bucket Bucket
	if err := c.doJSON(ctx, http.MethodPost, "/buckets", nil, req, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

type metadataRequest struct {
	Provider string     `json:"provider"`
	Metadata []Metadata `json:"metadata"`
}

// AddBucketMetadata stores metadata entries of a bucket. Entries are sent
// grouped by provider; an entry without one is stored as "system".
func (c *Client) AddBucketMetadata(ctx context.Context, bucketID string, metadata []Metadata) error {
	return c.postMetadata(ctx, "/buckets/"+bucketID+"/metadata", metadata)
}

// AddBranchMetadata stores project metadata on the default branch.
func (c *Client) AddBranchMetadata(ctx context.Context, metadata []Metadata) error {
	return c.postMetadata(ctx, "/branch/default/metadata", metadata)
}

func (c *Client) postMetadata(ctx context.Context, p string, metadata []Metadata) error {
	if len(metadata) == 0 {
		return nil
	}

	// the API accepts one provider per call
	byProvider := map[string][]Metadata{}
	var providers []string
	for _, m := range metadata {
		provider := m.Provider
		if provider == "" {
			provider = metadataProvider
		}
		if _, ok := byProvider[provider]; !ok {
			providers = append(providers, provider)
		}
		byProvider[provider] = append(byProvider[provider], Metadata{Key: m.Key, Value: m.Value})
	}

	for _, provider := range providers {
		req := metadataRequest{Provider: provider, Metadata: byProvider[provider]}
		if err := c.doJSON(ctx, http.MethodPost, p, nil, req, nil); err != nil {
			return err
		}
	}
	return nil
}
