package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/spf13/cobra"
)

var (
	teardownDeleteModel bool
	teardownForce       bool
)

var teardownCmd = &cobra.Command{
	Use:   "teardown <endpoint>",
	Short: "Delete an endpoint and its endpoint configuration",
	Long: `Delete a deployed endpoint, wait until it is gone, then delete the endpoint
configuration it used. With --delete-model the models behind that configuration
are deleted too. The endpoint stays tracked in the config file.

Example:
  sagedeploy teardown recommender --delete-model`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !teardownForce && !confirm(fmt.Sprintf("Delete endpoint '%s'?", name)) {
			fmt.Println("Cancelled.")
			return nil
		}

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

		d, err := newDeployment(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.deployer.Teardown(ctx, name, teardownDeleteModel); err != nil {
			return fmt.Errorf("failed to tear down %s: %w", name, err)
		}

		fmt.Printf("✓ Deleted endpoint '%s'\n", name)
		return nil
	},
}

func init() {
	teardownCmd.Flags().BoolVar(&teardownDeleteModel, "delete-model", false, "also delete the models behind the endpoint configuration")
	teardownCmd.Flags().BoolVarP(&teardownForce, "force", "f", false, "skip confirmation prompt")
	rootCmd.AddCommand(teardownCmd)
}
