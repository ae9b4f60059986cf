package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/futurenet/config"
	"github.com/kbukum/futurenet/httpclient"
	"github.com/kbukum/futurenet/httpclient/jwtauth"
	"github.com/kbukum/futurenet/logger"
	"github.com/kbukum/futurenet/observability"
	"github.com/kbukum/futurenet/version"
)

const serviceName = "futurenet"

type globalOptions struct {
	configFile string
	envFile    string
	noColor    bool
	verbose    bool
}

// appConfig is the file and environment configuration of the CLI.
type appConfig struct {
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Client        httpclient.Config    `yaml:"client" mapstructure:"client"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	// JWT, when set, signs a bearer token for every request that carries no
	// other credential.
	JWT *jwtauth.Config `yaml:"jwt" mapstructure:"jwt"`
}

func loadConfig(opts *globalOptions) (*appConfig, error) {
	var loaderOpts []config.LoaderOption
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.envFile))
	}

	cfg := &appConfig{}
	if err := config.LoadConfig(serviceName, cfg, loaderOpts...); err != nil {
		return nil, err
	}

	cfg.Logging.ApplyDefaults()
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.noColor {
		cfg.Logging.NoColor = true
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = serviceName
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = version.Get().Version
	}
	cfg.Observability.ApplyDefaults()
	cfg.Client.ApplyDefaults()

	if err := errors.Join(
		cfg.Logging.Validate(),
		cfg.Observability.Validate(),
		cfg.Client.Validate(),
	); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runtime holds what a command needs after setup, and how to tear it down.
type runtime struct {
	cfg      *appConfig
	log      *logger.Logger
	client   *httpclient.Client
	shutdown []func(context.Context) error
}

func setup(ctx context.Context, cfg *appConfig) (*runtime, error) {
	log := logger.New(&cfg.Logging, serviceName)
	logger.SetGlobalLogger(log)
	logger.Register(log, "httpclient", observability.ComponentName)

	rt := &runtime{cfg: cfg, log: log}
	var clientOpts []httpclient.Option

	if cfg.Observability.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Observability)
		if err != nil {
			return nil, err
		}
		rt.shutdown = append(rt.shutdown, tp.Shutdown)

		mp, err := observability.InitMeter(ctx, cfg.Observability)
		if err != nil {
			return nil, rt.close(ctx, err)
		}
		rt.shutdown = append(rt.shutdown, mp.Shutdown)

		metrics, err := observability.NewClientMetrics(observability.Meter(serviceName))
		if err != nil {
			return nil, rt.close(ctx, err)
		}
		clientOpts = append(clientOpts, httpclient.WithMetrics(metrics))
	}

	client, err := httpclient.New(cfg.Client, clientOpts...)
	if err != nil {
		return nil, rt.close(ctx, err)
	}
	rt.client = client
	rt.shutdown = append(rt.shutdown, func(context.Context) error {
		client.Close()
		return nil
	})
	return rt, nil
}

// close runs the shutdown hooks in reverse order and joins their errors
// with cause.
func (rt *runtime) close(ctx context.Context, cause error) error {
	errs := []error{cause}
	for i := len(rt.shutdown) - 1; i >= 0; i-- {
		if err := rt.shutdown[i](ctx); err != nil {
			rt.log.Warn("shutdown hook failed", logger.ErrorFields("shutdown", err))
			errs = append(errs, err)
		}
	}
	rt.shutdown = nil
	return errors.Join(errs...)
}
