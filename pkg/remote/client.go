// Package remote talks to the entries service. Reads and writes always move
// the whole collection; the local cache is the fallback when the service
// cannot be reached.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/entry"
	"github.com/harrisonrobin/tarefas/pkg/model"
)

type Status string

const (
	StatusConnecting        Status = "connecting"
	StatusSynced            Status = "synced"
	StatusOffline           Status = "offline"
	StatusErrorSavedLocally Status = "error-saved-locally"
)

// StatusFunc receives every status change. It is called from whichever
// goroutine performs the sync and must not block.
type StatusFunc func(Status)

// OfflineError reports that the remote could not be read.
type OfflineError struct {
	Err error
}

func (e *OfflineError) Error() string {
	return "remote unavailable, using local cache: " + e.Err.Error()
}

func (e *OfflineError) Unwrap() error { return e.Err }

// PushError reports that the remote write failed. The local cache already
// holds the attempted collection.
type PushError struct {
	Err error
}

func (e *PushError) Error() string {
	return "remote save failed, saved locally: " + e.Err.Error()
}

func (e *PushError) Unwrap() error { return e.Err }

type Options struct {
	// BaseURL is the API root, e.g. http://localhost:5001/api.
	BaseURL string
	// Token, when set, is sent as a bearer token.
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	OnStatus   StatusFunc
	Now        func() time.Time
}

// Client is the Remote Sync Client.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    *cache.TaskCache
	logger   *slog.Logger
	onStatus StatusFunc
	now      func() time.Time
}

func NewClient(c *cache.TaskCache, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
	}
	if opts.Timeout > 0 {
		withTimeout := *hc
		withTimeout.Timeout = opts.Timeout
		hc = &withTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     hc,
		cache:    c,
		logger:   logger,
		onStatus: opts.OnStatus,
		now:      now,
	}
}

// SetStatusFunc replaces the status callback. It is not safe to call while
// a sync is in flight.
func (c *Client) SetStatusFunc(fn StatusFunc) {
	c.onStatus = fn
}

func (c *Client) report(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

func (c *Client) entriesURL() string {
	return c.baseURL + "/entries"
}

// FetchAll reads the remote collection and mirrors it into the local cache.
// On any failure it returns the cache contents unchanged together with an
// *OfflineError; the returned tasks are usable in both cases.
func (c *Client) FetchAll(ctx context.Context) ([]model.Task, error) {
	tasks, err := c.Fetch(ctx)
	if err != nil {
		return c.cache.Tasks(), err
	}
	if err := c.cache.Replace(tasks); err != nil {
		c.logger.Warn("could not update local cache", "error", err)
	}
	return tasks, nil
}

// Fetch reads the remote collection without touching the cache. Failures
// come back as *OfflineError.
func (c *Client) Fetch(ctx context.Context) ([]model.Task, error) {
	c.report(StatusConnecting)

	tasks, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("fetch failed, using local cache", "error", err)
		c.report(StatusOffline)
		return nil, &OfflineError{Err: err}
	}
	c.logger.Debug("fetched tasks", "count", len(tasks))
	c.report(StatusSynced)
	return tasks, nil
}

func (c *Client) fetch(ctx context.Context) ([]model.Task, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no remote configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entriesURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var entries []entry.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entry.ToTasks(entries)
}

// PersistAll writes tasks to the local cache, then overwrites the remote
// collection with them. The cache write happens regardless of the remote
// outcome. A non-nil error means the remote write failed.
func (c *Client) PersistAll(ctx context.Context, tasks []model.Task) error {
	if err := c.cache.Replace(tasks); err != nil {
		c.logger.Warn("could not update local cache", "error", err)
	}
	return c.Push(ctx, tasks)
}

// Push overwrites the remote collection without touching the cache.
func (c *Client) Push(ctx context.Context, tasks []model.Task) error {
	c.report(StatusConnecting)

	if err := c.push(ctx, tasks); err != nil {
		c.logger.Warn("save failed, data kept locally", "error", err)
		c.report(StatusErrorSavedLocally)
		return &PushError{Err: err}
	}
	c.logger.Debug("saved tasks", "count", len(tasks))
	c.report(StatusSynced)
	return nil
}

func (c *Client) push(ctx context.Context, tasks []model.Task) error {
	if c.baseURL == "" {
		return fmt.Errorf("no remote configured")
	}
	body, err := json.Marshal(entry.FromTasks(tasks, c.now()))
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.entriesURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
