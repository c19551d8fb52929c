package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

// Client is an HTTP implementation of Resolver backed by the content
// service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a content service client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// itemResponse mirrors the content service's item payload
type itemResponse struct {
	Title   string   `json:"title"`
	Front   string   `json:"front"`
	Back    string   `json:"back"`
	Body    string   `json:"body"`
	Options []string `json:"options"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Resolve fetches one item's payload from the content service
func (c *Client) Resolve(ctx context.Context, itemType models.ItemType, itemID int64) (*models.ReviewItem, error) {
	url := fmt.Sprintf("%s/api/items/%s/%d", c.baseURL, itemType, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach content service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content service returned status %d", resp.StatusCode)
	}

	var response itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode item response: %v", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("content service error: %s", response.Error.Message)
	}

	return &models.ReviewItem{
		Type:    itemType,
		ItemID:  itemID,
		Title:   response.Title,
		Front:   response.Front,
		Back:    response.Back,
		Body:    response.Body,
		Options: response.Options,
	}, nil
}

// Annotate forwards a classification hint for an item
func (c *Client) Annotate(ctx context.Context, itemType models.ItemType, itemID int64, hint string) error {
	payload, err := json.Marshal(map[string]string{"context": hint})
	if err != nil {
		return fmt.Errorf("failed to marshal hint: %v", err)
	}

	url := fmt.Sprintf("%s/api/items/%s/%d/annotate", c.baseURL, itemType, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach content service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("content service returned status %d", resp.StatusCode)
	}
	return nil
}
