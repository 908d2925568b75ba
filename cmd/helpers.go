package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/deploy"
	"github.com/juststeveking/sagedeploy/internal/history"
	"github.com/juststeveking/sagedeploy/internal/logging"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/juststeveking/sagedeploy/internal/notify"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/raulk/clock"
	"go.uber.org/zap"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newLogger builds the logger selected by the persistent flags
func newLogger() (*zap.Logger, error) {
	logger, err := logging.New(logLevel, devLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// resolveRegion picks --region, then $AWS_REGION, then the config file
func resolveRegion(cfg *config.Config) string {
	if region != "" {
		return region
	}
	if env := os.Getenv("AWS_REGION"); env != "" {
		return env
	}
	if cfg != nil {
		return cfg.Region
	}
	return ""
}

// loadAWSConfig loads shared credentials for the resolved region
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if r := resolveRegion(cfg); r != "" {
		opts = append(opts, awsconfig.WithRegion(r))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// deployment bundles a deployer with the resources it holds open
type deployment struct {
	deployer *deploy.Deployer
	client   *sagemaker.Client
	store    *history.Store
}

// Close releases the history store
func (d *deployment) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// newDeployment wires a deployer from the config file
func newDeployment(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deployment, error) {
	interval, err := cfg.PollIntervalDuration()
	if err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	client := sagemaker.NewFromConfig(awsCfg, logger)
	readiness := monitor.NewReadiness(client, clk,
		monitor.WithInterval(interval),
		monitor.WithLogger(logger),
	)

	opts := []deploy.Option{}

	historyPath, err := cfg.ResolvedHistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(historyPath)
	if err != nil {
		// Deploys still run without a history store
		logger.Warn("Deployment history unavailable", zap.String("path", historyPath), zap.Error(err))
	} else {
		opts = append(opts, deploy.WithHistory(store))
	}

	var publisher notify.Publisher
	if cfg.Notifications.SNSTopicARN != "" {
		publisher = sns.NewFromConfig(awsCfg)
	}
	notifier := notify.NewNotifier(cfg.Notifications.Desktop, publisher, cfg.Notifications.SNSTopicARN, logger)
	if notifier.Enabled() {
		opts = append(opts, deploy.WithNotifier(notifier))
	}

	return &deployment{
		deployer: deploy.New(client, readiness, clk, logger, opts...),
		client:   client,
		store:    store,
	}, nil
}

// outcomeError turns a non-successful outcome into a command failure
func outcomeError(endpoint string, outcome monitor.Outcome, reason string) error {
	if outcome.OK() {
		return nil
	}
	if reason != "" {
		return fmt.Errorf("endpoint %s finished %s: %s", endpoint, outcome, reason)
	}
	return fmt.Errorf("endpoint %s finished %s", endpoint, outcome)
}
