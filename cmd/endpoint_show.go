package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/spf13/cobra"
)

var showLive bool

var endpointShowCmd = &cobra.Command{
	Use:   "endpoint:show <name>",
	Short: "Show details of a tracked endpoint",
	Long: `Display the configuration of a tracked endpoint. With --live the current
SageMaker status is fetched as well.

Example:
  sagedeploy endpoint:show recommender --live`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		found, ok := cfg.FindEndpoint(name)
		if !ok {
			return fmt.Errorf("endpoint '%s' not found", name)
		}
		found = found.WithDefaults()

		fmt.Printf("Endpoint: %s\n", found.Name)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("Model:            %s\n", found.ModelName)
		if found.ModelData != "" {
			fmt.Printf("Model Data:       %s\n", found.ModelData)
		}
		if found.Image != "" {
			fmt.Printf("Image:            %s\n", found.Image)
		}
		if found.RoleARN != "" {
			fmt.Printf("Role:             %s\n", found.RoleARN)
		}
		if found.EntryPoint != "" {
			fmt.Printf("Entry Point:      %s\n", found.EntryPoint)
		}
		fmt.Printf("Instance Type:    %s\n", found.InstanceType)
		fmt.Printf("Instance Count:   %d\n", found.InstanceCount)
		fmt.Printf("Variant:          %s\n", found.VariantName)

		if !showLive {
			return nil
		}

		ctx, cancel := signalContext()
		defer cancel()

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}

		desc, err := sagemaker.NewFromConfig(awsCfg, logger).DescribeEndpoint(ctx, found.Name)
		if err != nil {
			if sagemaker.IsNotFound(err) {
				fmt.Println("\nStatus:           not deployed")
				return nil
			}
			return fmt.Errorf("failed to describe endpoint: %w", err)
		}

		fmt.Println()
		fmt.Printf("Status:           %s\n", desc.Status)
		fmt.Printf("ARN:              %s\n", desc.ARN)
		fmt.Printf("Config:           %s\n", desc.ConfigName)
		if desc.FailureReason != "" {
			fmt.Printf("Failure Reason:   %s\n", desc.FailureReason)
		}
		if !desc.ModifiedAt.IsZero() {
			fmt.Printf("Last Modified:    %s\n", desc.ModifiedAt.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}

func init() {
	endpointShowCmd.Flags().BoolVar(&showLive, "live", false, "fetch the current status from SageMaker")
	rootCmd.AddCommand(endpointShowCmd)
}
