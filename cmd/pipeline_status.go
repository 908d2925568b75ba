package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/spf13/cobra"
)

var pipelineStatusCmd = &cobra.Command{
	Use:   "pipeline:status <execution-arn>",
	Short: "Show the status of a pipeline execution",
	Long: `Describe a pipeline execution started by the upload trigger.

Example:
  sagedeploy pipeline:status arn:aws:sagemaker:us-east-1:123456789012:pipeline/retrain/execution/abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
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

		exec, err := sagemaker.NewFromConfig(awsCfg, logger).PipelineExecutionStatus(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to describe pipeline execution: %w", err)
		}

		fmt.Printf("Execution: %s\n", exec.ARN)
		fmt.Println("─────────────────────────────────────")
		if exec.DisplayName != "" {
			fmt.Printf("Name:      %s\n", exec.DisplayName)
		}
		fmt.Printf("Status:    %s\n", exec.Status)
		if exec.FailureReason != "" {
			fmt.Printf("Reason:    %s\n", exec.FailureReason)
		}
		if !exec.StartedAt.IsZero() {
			fmt.Printf("Started:   %s\n", exec.StartedAt.Format("2006-01-02 15:04:05"))
		}
		if !exec.ModifiedAt.IsZero() {
			fmt.Printf("Modified:  %s\n", exec.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineStatusCmd)
}
