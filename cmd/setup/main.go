package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/internal/dbm"
	"github.com/last9/otelkit/pkg/last9"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/storage/database"
)

// Exit codes: 0 everything applied, 1 the OTLP probe exhausted its attempts,
// 2 the DBM setup failed, 3 the log query failed.
const (
	exitOK            = 0
	exitProbeExhaust  = 1
	exitSetupFailure  = 2
	exitQueryFailure  = 3
	defaultHealthURL  = "http://localhost:13133"
	remediationFormat = `OTLP collector is not reachable. Check it manually:

    curl -v %s

If the collector is not running, start it and re-run this command.`
)

func main() {
	checkOTLP := flag.Bool("check-otlp", false, "probe the OTLP collector health endpoint")
	setupDBM := flag.Bool("setup-dbm", false, "apply the otel_monitor schema and monitoring role to PostgreSQL")
	healthURL := flag.String("health-url", defaultHealthURL, "collector health check URL")
	attempts := flag.Int("attempts", 10, "number of probe attempts before giving up")
	interval := flag.Duration("interval", 3*time.Second, "sleep between probe attempts")
	queryLogs := flag.String("query-logs", "", "run a log query against the Last9 read API and print matching records")
	queryWindow := flag.Duration("query-window", 15*time.Minute, "time window for --query-logs, ending now")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	if !*checkOTLP && !*setupDBM && *queryLogs == "" {
		flag.Usage()
		os.Exit(exitOK)
	}

	if *checkOTLP {
		if !probeCollector(*healthURL, *attempts, *interval) {
			fmt.Fprintf(os.Stderr, remediationFormat+"\n", *healthURL)
			os.Exit(exitProbeExhaust)
		}
	}

	if *setupDBM {
		if err := applyDBMSetup(); err != nil {
			logger.Logger.Error("DBM setup failed", zap.Error(err))
			os.Exit(exitSetupFailure)
		}
	}

	if *queryLogs != "" {
		err := runQueryLogs(context.Background(),
			config.Cfg.Last9APIBaseURL, config.Cfg.Last9AuthToken,
			*queryLogs, *queryWindow, os.Stdout,
		)
		if err != nil {
			logger.Logger.Error("Log query failed",
				zap.String("query", *queryLogs),
				zap.Error(err),
			)
			os.Exit(exitQueryFailure)
		}
	}

	os.Exit(exitOK)
}

// runQueryLogs queries the Last9 read API over the given window and writes
// one JSON record per line to out.
func runQueryLogs(ctx context.Context, baseURL, authToken, query string, window time.Duration, out io.Writer) error {
	client, err := last9.NewClient(baseURL, authToken, last9.WithLogger(logger.Logger))
	if err != nil {
		return err
	}

	end := time.Now().UnixNano()
	records, err := client.QueryLogs(ctx, last9.QueryParams{
		Query: query,
		Start: end - window.Nanoseconds(),
		End:   end,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}

	logger.Logger.Info("Log query finished",
		zap.String("query", query),
		zap.Int("records", len(records)),
	)
	return nil
}

// probeCollector retries the health endpoint a fixed number of times with a
// constant sleep between attempts.
func probeCollector(url string, attempts int, interval time.Duration) bool {
	client := retryablehttp.NewClient()
	client.RetryMax = attempts - 1
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	client.Backoff = func(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return interval
	}
	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		logger.Logger.Info("Probing OTLP collector",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", attempts),
		)
	}

	resp, err := client.Get(url)
	if err != nil {
		logger.Logger.Warn("Collector not reachable",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Logger.Info("OTLP collector is healthy",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return true
	}

	logger.Logger.Warn("Collector responded unhealthy",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)
	return false
}

func applyDBMSetup() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := database.Close(closeCtx); err != nil {
			logger.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return dbm.Setup(ctx, database.DB())
}
