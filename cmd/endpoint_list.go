package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/spf13/cobra"
)

var endpointListCmd = &cobra.Command{
	Use:   "endpoint:list",
	Short: "List all tracked endpoints",
	Long:  `Display all endpoints currently tracked in sagedeploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if len(cfg.Endpoints) == 0 {
			fmt.Println("No endpoints configured yet.")
			fmt.Println("\nAdd an endpoint with:")
			fmt.Println("  sagedeploy endpoint:add --name <name> --model-data <s3 url>")
			return nil
		}

		fmt.Printf("Tracked endpoints (%d):\n\n", len(cfg.Endpoints))

		for _, e := range cfg.Endpoints {
			e = e.WithDefaults()
			fmt.Printf("  • %s\n", e.Name)
			fmt.Printf("    Model: %s\n", e.ModelName)
			if e.ModelData != "" {
				fmt.Printf("    Data:  %s\n", e.ModelData)
			}
			fmt.Printf("    Capacity: %s ×%d (%s)\n", e.InstanceType, e.InstanceCount, e.VariantName)
			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointListCmd)
}
