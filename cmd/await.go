package cmd

import (
	"fmt"
	"time"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/raulk/clock"
	"github.com/spf13/cobra"
)

var (
	awaitTimeout  time.Duration
	awaitInterval time.Duration
)

var awaitCmd = &cobra.Command{
	Use:   "await <endpoint>",
	Short: "Wait until an endpoint is InService",
	Long: `Poll an endpoint until it is InService, Failed or the timeout expires.

The command exits non-zero unless the endpoint becomes InService.

Example:
  sagedeploy await recommender --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		timeout := awaitTimeout
		if timeout <= 0 {
			if timeout, err = cfg.TimeoutDuration(); err != nil {
				return err
			}
		}
		interval := awaitInterval
		if interval <= 0 {
			if interval, err = cfg.PollIntervalDuration(); err != nil {
				return err
			}
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := signalContext()
		defer cancel()

		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}

		clk := clock.New()
		client := sagemaker.NewFromConfig(awsCfg, logger)
		readiness := monitor.NewReadiness(client, clk,
			monitor.WithInterval(interval),
			monitor.WithLogger(logger),
		)

		outcome, err := readiness.AwaitReady(ctx, name, clk.Now().Add(timeout))
		fmt.Printf("Endpoint %s: %s\n", name, outcome)
		if err != nil {
			return fmt.Errorf("failed to await %s: %w", name, err)
		}

		var reason string
		if outcome == monitor.OutcomeFailed {
			if desc, err := client.DescribeEndpoint(ctx, name); err == nil {
				reason = desc.FailureReason
			}
		}
		return outcomeError(name, outcome, reason)
	},
}

func init() {
	awaitCmd.Flags().DurationVar(&awaitTimeout, "timeout", 0, "how long to wait (default from config, 15m)")
	awaitCmd.Flags().DurationVar(&awaitInterval, "interval", 0, "time between status checks (default from config, 5s)")
	rootCmd.AddCommand(awaitCmd)
}
