// Command certkeeper runs one certificate renewal pass: it scans the request
// catalogue, selects the certificates that are missing or near expiry, and
// issues them through ACME DNS-01 validation against Route 53.
//
// It is designed to run on a schedule; each invocation is a complete,
// self-contained pass. Per-certificate failures are reported in the logs and
// retried naturally on the next pass; only a failed catalogue scan, which
// renews nothing, exits non-zero.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/certkeeper/core/certstore"
	"github.com/dmitrymomot/certkeeper/core/config"
	"github.com/dmitrymomot/certkeeper/core/issuance"
	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/renewal"
	acmeclient "github.com/dmitrymomot/certkeeper/integration/acme"
	"github.com/dmitrymomot/certkeeper/integration/dns/route53"
	s3store "github.com/dmitrymomot/certkeeper/integration/store/s3"
)

type appConfig struct {
	Bucket string `env:"STORE_BUCKET,required"`
	Region string `env:"AWS_REGION,required"`
	Prefix string `env:"STORE_PREFIX" envDefault:"certkeeper"`

	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	StoreMode     string  `env:"STORE_MODE" envDefault:"vault"`
	ThresholdDays float64 `env:"RENEWAL_THRESHOLD_DAYS" envDefault:"30"`

	DNSWaitForSync    bool          `env:"DNS_WAIT_FOR_SYNC" envDefault:"true"`
	ValidationTimeout time.Duration `env:"VALIDATION_TIMEOUT" envDefault:"5m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("run failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	mode := certstore.Mode(cfg.StoreMode)
	if !mode.Valid() {
		return errors.New("STORE_MODE must be \"local\" or \"vault\"")
	}

	store, err := s3store.New(ctx, s3store.Config{
		Bucket:      cfg.Bucket,
		Region:      cfg.Region,
		Prefix:      cfg.Prefix,
		AccessKeyID: cfg.AccessKeyID,
		SecretKey:   cfg.SecretKey,
	}, s3store.WithLogger(log.With(logger.Component("store"))))
	if err != nil {
		return err
	}

	dns, err := route53.New(ctx, route53.Config{
		Region:      cfg.Region,
		AccessKeyID: cfg.AccessKeyID,
		SecretKey:   cfg.SecretKey,
		WaitForSync: cfg.DNSWaitForSync,
	}, route53.WithLogger(log.With(logger.Component("dns"))))
	if err != nil {
		return err
	}

	workflow, err := issuance.NewWorkflow(acmeclient.Factory, dns, certstore.New(store), mode,
		log.With(logger.Component("issuance")),
		issuance.WithWorkflowValidationTimeout(cfg.ValidationTimeout))
	if err != nil {
		return err
	}

	selector := renewal.NewSelector(certstore.New(store), cfg.ThresholdDays,
		log.With(logger.Component("selector")))
	coordinator, err := renewal.NewCoordinator(store, selector, workflow,
		log.With(logger.Component("coordinator")))
	if err != nil {
		return err
	}

	report, err := coordinator.Run(ctx)
	if errors.Is(err, renewal.ErrScanFailed) {
		return err
	}
	// Per-certificate failures were already logged in detail and the next
	// scheduled pass retries them; they do not fail the invocation.
	if report.Failed > 0 {
		log.Warn("run completed with failures",
			logger.RunID(report.RunID),
			logger.Count("failed", report.Failed),
			logger.Count("succeeded", report.Succeeded))
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
