package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/pkg/logger"
)

// client talks to the ladder HTTP API.
type client struct {
	http    *http.Client
	baseURL string
	group   string
}

func newClient(cfg *Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		group:   cfg.Group,
	}
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	if c.group != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("group", c.group)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *client) postEvent(ctx context.Context, ev Event) (AckResponse, error) {
	var ack AckResponse
	err := c.do(ctx, http.MethodPost, "/events", nil, ev, &ack)
	return ack, err
}

func (c *client) top(ctx context.Context, attr, scoreType string, n int) ([]Entry, error) {
	var rows []Entry
	q := url.Values{"n": {strconv.Itoa(n)}, "type": {scoreType}}
	err := c.do(ctx, http.MethodGet, "/leaderboards/"+url.PathEscape(attr)+"/top", q, nil, &rows)
	return rows, err
}

func (c *client) total(ctx context.Context, user, attr string) (float64, error) {
	var res struct {
		Total float64 `json:"total"`
	}
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(user)+"/attrs/"+url.PathEscape(attr)+"/total", nil, nil, &res)
	return res.Total, err
}

// submitEvents posts events with at most cfg.Workers requests in flight and
// returns the events the service accepted as new. Individual failures are
// counted, not returned.
func submitEvents(ctx context.Context, cfg *Config, c *client, events []Event, stats *Stats) ([]Event, error) {
	log := logger.Get()
	log.Info(ctx, "submitting events", logger.Int("count", len(events)), logger.Int("workers", cfg.Workers))

	var (
		submitted, successful, duplicate, failed atomic.Int64

		mu       sync.Mutex
		accepted = make([]Event, 0, len(events))
	)
	lastReport := atomic.Int64{}
	lastReport.Store(time.Now().UnixNano())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for _, ev := range events {
		g.Go(func() error {
			ack, err := c.postEvent(gctx, ev)
			n := submitted.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "event failed", logger.String("user", ev.UserID), logger.Error(err))
				}
			case ack.Duplicate:
				duplicate.Add(1)
			default:
				successful.Add(1)
				mu.Lock()
				accepted = append(accepted, ev)
				mu.Unlock()
			}

			now := time.Now().UnixNano()
			if prev := lastReport.Load(); now-prev >= int64(time.Second) && lastReport.CompareAndSwap(prev, now) {
				log.Info(gctx, "submission progress",
					logger.Int64("submitted", n),
					logger.Int("of", len(events)),
					logger.Int64("failed", failed.Load()))
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.EventsSubmitted += int(submitted.Load())
	stats.EventsSuccessful += int(successful.Load())
	stats.EventsDuplicate += int(duplicate.Load())
	stats.EventsFailed += int(failed.Load())
	if err != nil {
		return nil, fmt.Errorf("submission interrupted: %w", err)
	}
	return accepted, nil
}
