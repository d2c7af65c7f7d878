// Package smashrun is a minimal Smashrun API client and the activity source
// built on it.
package smashrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const BaseURL = "https://api.smashrun.com/v1"

const pageSize = 100

var ErrNotFound = errors.New("smashrun: not found")

// APIError is a non-200 response from the API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smashrun API error %d: %s", e.Status, e.Body)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client authorized by tokenSource
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return NewClientWithHTTP(oauth2.NewClient(context.Background(), tokenSource), BaseURL)
}

// NewClientWithHTTP creates a client that sends requests with hc to baseURL
func NewClientWithHTTP(hc *http.Client, baseURL string) *Client {
	return &Client{httpClient: hc, baseURL: baseURL}
}

// GetActivities fetches one page of activities started since the given instant
func (c *Client) GetActivities(ctx context.Context, since time.Time, page int) ([]Activity, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("fromDate", strconv.FormatInt(since.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("count", strconv.Itoa(pageSize))

	var activities []Activity
	if err := c.get(ctx, "/my/activities/search", params, &activities); err != nil {
		return nil, fmt.Errorf("searching activities page %d: %w", page, err)
	}
	return activities, nil
}

// GetAllActivities pages through every activity started since the given instant.
// Pages are numbered from zero.
func (c *Client) GetAllActivities(ctx context.Context, since time.Time) ([]Activity, error) {
	var all []Activity
	for page := 0; ; page++ {
		activities, err := c.GetActivities(ctx, since, page)
		if err != nil {
			return all, err
		}
		all = append(all, activities...)
		if len(activities) < pageSize {
			return all, nil
		}
	}
}

// GetActivity fetches an activity with its recordings
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	var a Activity
	if err := c.get(ctx, fmt.Sprintf("/my/activities/%d", id), nil, &a); err != nil {
		return nil, fmt.Errorf("fetching activity %d: %w", id, err)
	}
	return &a, nil
}

// GetBadges lists the badges the user has earned
func (c *Client) GetBadges(ctx context.Context) ([]Badge, error) {
	var badges []Badge
	if err := c.get(ctx, "/my/badges", nil, &badges); err != nil {
		return nil, fmt.Errorf("fetching badges: %w", err)
	}
	return badges, nil
}

func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var u UserInfo
	if err := c.get(ctx, "/my/userinfo", nil, &u); err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	return &u, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
