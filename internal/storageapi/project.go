package storageapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// NotificationServiceID is the id of the notification service in the stack index.
const NotificationServiceID = "notification"

// GenerateRunID asks the stack for a new unique id usable as a run id.
func (c *Client) GenerateRunID(ctx context.Context) (string, error) {
	var ticket struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/tickets", nil, nil, &ticket); err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// VerifyToken returns the detail of the client's token and its project.
func (c *Client) VerifyToken(ctx context.Context) (*TokenInfo, error) {
	var info TokenInfo
	if err := c.doJSON(ctx, http.MethodGet, "/tokens/verify", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateToken creates a token of the current project.
func (c *Client) CreateToken(ctx context.Context, req CreateTokenRequest) (*Token, error) {
	var token Token
	if err := c.doJSON(ctx, http.MethodPost, "/tokens", nil, req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateTrigger creates a trigger.
func (c *Client) CreateTrigger(ctx context.Context, trigger Trigger) (*Trigger, error) {
	var created Trigger
	if err := c.doJSON(ctx, http.MethodPost, "/triggers", nil, trigger, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ServiceURL returns the URL of a stack service listed in the API index.
func (c *Client) ServiceURL(ctx context.Context, serviceID string) (string, error) {
	var index struct {
		Services []Service `json:"services"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "", nil, nil, &index); err != nil {
		return "", err
	}
	for _, s := range index.Services {
		if s.ID == serviceID {
			return strings.TrimSuffix(s.URL, "/"), nil
		}
	}
	return "", fmt.Errorf("service %q not found in the Storage API index", serviceID)
}

// CreateNotificationSubscription creates a project subscription in the
// notification service of the stack.
func (c *Client) CreateNotificationSubscription(ctx context.Context, sub NotificationSubscription) (*NotificationSubscription, error) {
	base, err := c.ServiceURL(ctx, NotificationServiceID)
	if err != nil {
		return nil, err
	}

	var created NotificationSubscription
	if err := c.doJSON(ctx, http.MethodPost, base+"/project-subscriptions", nil, sub, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
