// Package strava is a minimal Strava API client and the activity source
// built on it.
package strava

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

const BaseURL = "https://www.strava.com/api/v3"

// perPage is the largest page Strava serves
const perPage = 100

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("strava: not found")

// APIError is a non-200 response from the API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava API error %d: %s", e.Status, e.Body)
}

// Client is a Strava API client
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

// GetActivities fetches one page of the athlete's activities started in (after, before)
func (c *Client) GetActivities(ctx context.Context, after, before time.Time, page int) ([]SummaryActivity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []SummaryActivity
	if err := c.get(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("fetching activities page %d: %w", page, err)
	}
	return activities, nil
}

// GetAllActivities pages through every activity started in (after, before)
func (c *Client) GetAllActivities(ctx context.Context, after, before time.Time, onProgress func(fetched int)) ([]SummaryActivity, error) {
	var all []SummaryActivity
	for page := 1; ; page++ {
		activities, err := c.GetActivities(ctx, after, before, page)
		if err != nil {
			return all, err
		}
		all = append(all, activities...)

		if onProgress != nil {
			onProgress(len(all))
		}
		if len(activities) < perPage {
			return all, nil
		}
	}
}

// GetActivity fetches an activity with its best and segment efforts
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	params := url.Values{}
	params.Set("include_all_efforts", "true")

	var a Activity
	if err := c.get(ctx, fmt.Sprintf("/activities/%d", id), params, &a); err != nil {
		return nil, fmt.Errorf("fetching activity %d: %w", id, err)
	}
	return &a, nil
}

// GetActivityPhotos lists the activity's photos with URLs for the given size
func (c *Client) GetActivityPhotos(ctx context.Context, id int64, size int) ([]Photo, error) {
	var all []Photo
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("photo_sources", "true")
		params.Set("size", strconv.Itoa(size))
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(perPage))

		var photos []Photo
		if err := c.get(ctx, fmt.Sprintf("/activities/%d/photos", id), params, &photos); err != nil {
			return all, fmt.Errorf("fetching photos for activity %d: %w", id, err)
		}
		all = append(all, photos...)
		if len(photos) < perPage {
			return all, nil
		}
	}
}

// GetActivityStreams fetches the distance and time streams of an activity
func (c *Client) GetActivityStreams(ctx context.Context, id int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", "time,distance")
	params.Set("key_by_type", "true")

	var streams Streams
	if err := c.get(ctx, fmt.Sprintf("/activities/%d/streams", id), params, &streams); err != nil {
		return nil, fmt.Errorf("fetching streams for activity %d: %w", id, err)
	}
	return &streams, nil
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
