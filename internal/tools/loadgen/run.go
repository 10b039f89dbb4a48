package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/user-center/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

// scenario issues one or more requests for a single tick.
type scenario func(ctx context.Context, c *caller, n int) error

type caller struct {
	client  *http.Client
	baseURL string
	profile string

	total, failures, s2xx, s4xx, s5xx int64
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	profile := strings.ToLower(strings.TrimSpace(cfg.Profile))
	if profile == "" {
		profile = "crud"
	}
	run, ok := scenarios(rand.New(rand.NewSource(cfg.Seed)))[profile]
	if !ok {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	c := &caller{client: cfg.Client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), profile: profile}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	jobs := make(chan int, cfg.Concurrency*2)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for n := range jobs {
				if err := run(gctx, c, n); err != nil {
					atomic.AddInt64(&c.failures, 1)
				}
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	n := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			select {
			case jobs <- n:
				n++
			case <-ctx.Done():
				break loop
			}
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return c.result(), nil
}

func scenarios(rng *rand.Rand) map[string]scenario {
	var mu sync.Mutex
	pick := func(options []string) string {
		mu.Lock()
		defer mu.Unlock()
		return options[rng.Intn(len(options))]
	}
	searches := []string{"a", "li", "example", "张"}

	read := func(ctx context.Context, c *caller, n int) error {
		switch n % 4 {
		case 0:
			_, err := c.do(ctx, http.MethodGet, "/api/users", nil)
			return err
		case 1:
			_, err := c.do(ctx, http.MethodGet, "/api/users?q="+pick(searches), nil)
			return err
		case 2:
			_, err := c.do(ctx, http.MethodGet, "/api/users?page=1&pageSize=20&orderBy=createdAt&order=desc", nil)
			return err
		default:
			_, err := c.do(ctx, http.MethodGet, "/health/ready", nil)
			return err
		}
	}

	errorHeavy := func(ctx context.Context, c *caller, n int) error {
		var err error
		switch n % 4 {
		case 0:
			_, err = c.do(ctx, http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000000", nil)
		case 1:
			_, err = c.do(ctx, http.MethodPost, "/api/users", map[string]string{"name": ""})
		case 2:
			_, err = c.do(ctx, http.MethodPatch, "/api/users/missing", map[string]string{"status": "unknown"})
		default:
			_, err = c.do(ctx, http.MethodGet, "/api/users?page=0", nil)
		}
		return err
	}

	crud := func(ctx context.Context, c *caller, n int) error {
		body, err := c.do(ctx, http.MethodPost, "/api/users", map[string]string{
			"name":  fmt.Sprintf("load-%d", n),
			"email": fmt.Sprintf("load-%d-%d@example.com", n, time.Now().UnixNano()),
		})
		if err != nil {
			return err
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
			return fmt.Errorf("create user: unexpected body")
		}
		path := "/api/users/" + created.ID
		if _, err := c.do(ctx, http.MethodGet, path, nil); err != nil {
			return err
		}
		if _, err := c.do(ctx, http.MethodPatch, path, map[string]string{"status": pick([]string{"active", "inactive", "banned"})}); err != nil {
			return err
		}
		_, err = c.do(ctx, http.MethodDelete, path, nil)
		return err
	}

	return map[string]scenario{"read": read, "error-heavy": errorHeavy, "crud": crud}
}

// do sends one request and counts it by status class. Transport failures and
// 5xx responses are returned as errors; 4xx is an expected outcome.
func (c *caller) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	atomic.AddInt64(&c.total, 1)
	class := "other"
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		atomic.AddInt64(&c.s2xx, 1)
		class = "2xx"
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&c.s4xx, 1)
		class = "4xx"
	case resp.StatusCode >= 500:
		atomic.AddInt64(&c.s5xx, 1)
		class = "5xx"
	}
	observability.RecordLoadgenRequest(ctx, class, c.profile)
	if resp.StatusCode >= 500 {
		return data, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

func (c *caller) result() Result {
	return Result{
		TotalRequests: atomic.LoadInt64(&c.total),
		Failures:      atomic.LoadInt64(&c.failures),
		Status2xx:     atomic.LoadInt64(&c.s2xx),
		Status4xx:     atomic.LoadInt64(&c.s4xx),
		Status5xx:     atomic.LoadInt64(&c.s5xx),
	}
}
