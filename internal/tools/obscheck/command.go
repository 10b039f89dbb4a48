package obscheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/user-center/internal/tools/common"
	"github.com/sandeepkv93/user-center/internal/tools/loadgen"
	"github.com/sandeepkv93/user-center/internal/tools/ui"
)

type options struct {
	baseURL string
	traffic time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Verify the API exposes readiness and request metrics"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.traffic, "traffic", 5*time.Second, "duration of generated read traffic")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate traffic and check /health/ready and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			details, err := run(opts, "obscheck run", func(ctx context.Context) ([]string, error) {
				return Check(ctx, http.DefaultClient, opts.baseURL, opts.traffic)
			})
			common.RecordCommand(context.Background(), "obscheck", "run", start, err)
			if opts.ci {
				common.PrintCIResult(err == nil, "obscheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

// Check drives read traffic at baseURL, then requires a ready service and
// request counters for the user list route on /metrics.
func Check(ctx context.Context, client *http.Client, baseURL string, traffic time.Duration) ([]string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	res, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:     baseURL,
		Profile:     "read",
		Duration:    traffic,
		RPS:         10,
		Concurrency: 2,
		Client:      client,
	})
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures)}

	status, _, err := get(ctx, client, baseURL+"/health/ready")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("readiness returned %d", status)
	}
	details = append(details, "readiness: ok")

	status, body, err := get(ctx, client, baseURL+"/metrics")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("metrics endpoint returned %d", status)
	}
	count, err := sumSeries(strings.NewReader(body), "http_requests_total", `route="/api/users"`)
	if err != nil {
		return details, err
	}
	if count == 0 {
		return details, fmt.Errorf("no http_requests_total samples for /api/users")
	}
	details = append(details, fmt.Sprintf("http_requests_total{route=\"/api/users\"}=%.0f", count))
	return details, nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.traffic+time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func get(ctx context.Context, client *http.Client, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

// sumSeries adds the values of every sample of metric whose label set
// contains label.
func sumSeries(r io.Reader, metric, label string) (float64, error) {
	var total float64
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, metric+"{") || !strings.Contains(line, label) {
			continue
		}
		idx := strings.LastIndex(line, " ")
		v, err := strconv.ParseFloat(line[idx+1:], 64)
		if err != nil {
			return 0, fmt.Errorf("parse sample %q: %w", line, err)
		}
		total += v
	}
	return total, s.Err()
}
