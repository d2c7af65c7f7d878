// Package fetch downloads remote images to local temporary files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	gobreaker "github.com/sony/gobreaker/v2"

	"runjournal/internal/logging"
)

const (
	DefaultPrefix  = "runjournal_"
	DefaultTimeout = 30 * time.Second
)

// ErrNotFound is returned when the server answers with anything but 200
var ErrNotFound = errors.New("remote file not found")

// TransferError wraps any failure to fetch or store a remote file
type TransferError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransferError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Fetcher downloads files through a circuit breaker, so a dead image host
// stops being retried for every activity in a run
type Fetcher struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker[string]
	dir    string
	prefix string
}

// Config tunes a Fetcher. Zero values take defaults.
type Config struct {
	Dir     string // defaults to os.TempDir()
	Prefix  string
	Timeout time.Duration
}

func New(client *http.Client, cfg Config) *Fetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "image-fetch",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing file is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})

	return &Fetcher{client: client, cb: cb, dir: cfg.Dir, prefix: cfg.Prefix}
}

// Download stores the body of rawURL in a new temporary file and returns
// its path. The caller owns the file.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	p, err := f.cb.Execute(func() (string, error) {
		return f.download(ctx, rawURL)
	})
	if err != nil {
		var te *TransferError
		if errors.As(err, &te) {
			return "", err
		}
		// Rejected by the open breaker.
		return "", &TransferError{URL: redact(rawURL), Err: err}
	}
	return p, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (string, error) {
	shown := redact(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &TransferError{URL: shown, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &TransferError{URL: shown, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &TransferError{URL: shown, Status: resp.StatusCode, Err: ErrNotFound}
	}

	out, err := os.CreateTemp(f.dir, f.prefix+"*"+extension(req.URL))
	if err != nil {
		return "", &TransferError{URL: shown, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out.Name())
		return "", &TransferError{URL: shown, Err: fmt.Errorf("writing %s: %w", out.Name(), err)}
	}

	logging.Debug().Str("url", shown).Str("path", out.Name()).Str("size", humanize.Bytes(uint64(n))).Msg("Downloaded file")
	return out.Name(), nil
}

// extension keeps the remote file's extension so image tools recognize it
func extension(u *url.URL) string {
	ext := path.Ext(u.Path)
	if len(ext) > 5 {
		return ""
	}
	return ext
}

// redact drops the query string, which may carry API keys
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
