// radiusd is a RADIUS authentication and accounting server implementing
// RFC 2865/2866/2869, PAP/CHAP/MS-CHAP/MS-CHAPv2 with MPPE key derivation
// (RFC 2759/3079/2548). Configuration is read entirely from the
// environment; see config.FromEnv.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coreradius/radiusd/config"
	"github.com/coreradius/radiusd/handler"
	"github.com/coreradius/radiusd/identity"
	"github.com/coreradius/radiusd/instrumentation"
	"github.com/coreradius/radiusd/radiusserver"
	"github.com/coreradius/radiusd/secretstore"
	"github.com/coreradius/radiusd/session"
)

// shutdownGrace bounds the metrics server's graceful Shutdown after a
// shutdown signal. The RADIUS listeners do not wait for in-flight handlers.
const shutdownGrace = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	logger := config.SetupLogger(cfg.LogLevel, false)
	defer logger.Sync()

	identityRepo, err := openIdentityRepo(cfg)
	if err != nil {
		return err
	}
	if closer, ok := identityRepo.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	sessionRepo, closeSessionRepo, err := openSessionRepo(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessionRepo()

	secrets := secretstore.NewTable()
	if err := refreshSecrets(context.Background(), identityRepo, secrets, logger); err != nil {
		logger.Warnw("initial secret refresh failed, starting with an empty table", "error", err)
	}

	reg := prometheus.NewRegistry()
	metrics := instrumentation.NewMetrics(reg)
	metricsSrv := instrumentation.NewServer(cfg.MetricsAddr, reg)

	h := handler.New(identityRepo, sessionRepo)

	authSrv := &radiusserver.Server{
		Name:        "auth",
		Addr:        cfg.BindAddrAuth,
		Secrets:     secrets,
		Handler:     h,
		Metrics:     metrics,
		MaxInflight: cfg.MaxInflight,
		Logger:      logger,
	}
	acctSrv := &radiusserver.Server{
		Name:        "acct",
		Addr:        cfg.BindAddrAcct,
		Secrets:     secrets,
		Handler:     h,
		Metrics:     metrics,
		MaxInflight: cfg.MaxInflight,
		Logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return authSrv.Run(gCtx) })
	g.Go(func() error { return acctSrv.Run(gCtx) })
	g.Go(func() error { return metricsSrv.Run(logger) })
	g.Go(func() error {
		return secretRefreshLoop(gCtx, identityRepo, secrets, metrics, logger, cfg.SecretRefreshIntervalSecs)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	logger.Infow("radiusd started",
		"bind_addr_auth", cfg.BindAddrAuth,
		"bind_addr_acct", cfg.BindAddrAcct,
		"metrics_addr", cfg.MetricsAddr,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("radiusd: %w", err)
	}
	logger.Info("radiusd stopped")
	return nil
}

func openIdentityRepo(cfg config.Config) (identity.Repository, error) {
	if cfg.IdentityRepoURL == "" {
		return nil, errors.New("radiusd: IDENTITY_REPO_URL is required")
	}
	repo, err := identity.NewMySQLRepository(cfg.IdentityRepoURL, 16)
	if err != nil {
		return nil, fmt.Errorf("radiusd: opening identity repository: %w", err)
	}
	return repo, nil
}

// openSessionRepo wires SESSION_REPO_URL, which names a BigQuery table as
// "bigquery://<project>/<dataset>/<table>". An empty value falls back to
// the in-memory repository, matching §6's "no read path required" + the
// operational reality that not every deployment runs BigQuery.
func openSessionRepo(cfg config.Config, logger *zap.SugaredLogger) (session.Repository, func(), error) {
	if cfg.SessionRepoURL == "" {
		return session.NewInMemoryRepository(), func() {}, nil
	}

	project, dataset, table, err := parseBigQueryURL(cfg.SessionRepoURL)
	if err != nil {
		return nil, nil, fmt.Errorf("radiusd: SESSION_REPO_URL: %w", err)
	}

	repo, err := session.NewBigQueryRepository(context.Background(), project, dataset, table, 30,
		func(err error) { logger.Warnw("session write failed", "error", err) })
	if err != nil {
		return nil, nil, fmt.Errorf("radiusd: opening session repository: %w", err)
	}
	return repo, repo.Close, nil
}

func parseBigQueryURL(url string) (project, dataset, table string, err error) {
	const prefix = "bigquery://"
	if !strings.HasPrefix(url, prefix) {
		return "", "", "", fmt.Errorf("expected %s<project>/<dataset>/<table>, got %q", prefix, url)
	}
	parts := strings.Split(strings.TrimPrefix(url, prefix), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("expected %s<project>/<dataset>/<table>, got %q", prefix, url)
	}
	return parts[0], parts[1], parts[2], nil
}

func refreshSecrets(ctx context.Context, repo identity.Repository, secrets *secretstore.Table, logger *zap.SugaredLogger) error {
	records, err := repo.SecretRecords(ctx)
	if err != nil {
		return err
	}
	secrets.Swap(records)
	return nil
}

func secretRefreshLoop(ctx context.Context, repo identity.Repository, secrets *secretstore.Table, metrics *instrumentation.Metrics, logger *zap.SugaredLogger, intervalSecs int) error {
	ticker := time.NewTicker(time.Duration(intervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			records, err := repo.SecretRecords(ctx)
			if err != nil {
				metrics.SecretRefreshFail.Inc()
				logger.Warnw("secret refresh failed", "error", err)
				continue
			}
			secrets.Swap(records)
			metrics.SecretStoreSize.Set(float64(len(records)))
		}
	}
}
