package storageapi

import (
	"context"
	"net/http"
	"net/url"
)

// ListComponents returns the components of the project that have at least one
// configuration, each with its configuration list.
func (c *Client) ListComponents(ctx context.Context) ([]Component, error) {
	var components []Component
	query := url.Values{"include": {"configuration"}}
	if err := c.doJSON(ctx, http.MethodGet, "/components", query, nil, &components); err != nil {
		return nil, err
	}
	return components, nil
}

// AddConfiguration creates a configuration of the component, keeping the id
// from cfg when set.
func (c *Client) AddConfiguration(ctx context.Context, componentID string, cfg Configuration) (*Configuration, error) {
	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodPost, componentPath(componentID, ""), nil, cfg, &created); err != nil {
		return nil, err
	}
	cfg.ID = created.ID
	return &cfg, nil
}

type stateRequest struct {
	State any `json:"state"`
}

// UpdateConfigurationState replaces the state of a configuration.
func (c *Client) UpdateConfigurationState(ctx context.Context, componentID, configID string, state any) error {
	return c.doJSON(ctx, http.MethodPut, componentPath(componentID, configID, "state"), nil, stateRequest{State: state}, nil)
}

// AddConfigurationRow creates a row of a configuration.
func (c *Client) AddConfigurationRow(ctx context.Context, componentID, configID string, row ConfigurationRow) (*ConfigurationRow, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, componentPath(componentID, configID, "rows"), nil, row, &created); err != nil {
		return nil, err
	}
	row.ID = created.ID
	return &row, nil
}

// UpdateConfigurationRowState replaces the state of a configuration row.
func (c *Client) UpdateConfigurationRowState(ctx context.Context, componentID, configID, rowID string, state any) error {
	p := componentPath(componentID, configID, "rows", rowID, "state")
	return c.doJSON(ctx, http.MethodPut, p, nil, stateRequest{State: state}, nil)
}

// AddConfigurationMetadata stores metadata entries of a configuration.
func (c *Client) AddConfigurationMetadata(ctx context.Context, componentID, configID string, metadata []Metadata) error {
	if len(metadata) == 0 {
		return nil
	}
	entries := make([]Metadata, 0, len(metadata))
	for _, m := range metadata {
		entries = append(entries, Metadata{Key: m.Key, Value: m.Value})
	}
	req := struct {
		Metadata []Metadata `json:"metadata"`
	}{Metadata: entries}
	return c.doJSON(ctx, http.MethodPost, componentPath(componentID, configID, "metadata"), nil, req, nil)
}
