package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/inference"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/spf13/cobra"
)

var invokeItemID int

var invokeCmd = &cobra.Command{
	Use:   "invoke <endpoint>",
	Short: "Request recommendations from a deployed endpoint",
	Long: `Send a single recommendation request to an endpoint and print the response.

Example:
  sagedeploy invoke recommender --item-id 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		body, err := json.Marshal(map[string]int{"itemId": invokeItemID})
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}

		out, err := sagemaker.NewRuntimeFromConfig(awsCfg).Invoke(ctx, name, "application/json", body)
		if err != nil {
			return fmt.Errorf("failed to invoke %s: %w", name, err)
		}

		var resp inference.Response
		if err := json.Unmarshal(out, &resp); err != nil {
			// Not one of ours; show it as is
			fmt.Println(string(out))
			return nil
		}

		if resp.Error != "" {
			return fmt.Errorf("endpoint %s: %s", name, resp.Error)
		}
		fmt.Printf("Recommendations for item %d: %v\n", invokeItemID, resp.Rec)
		return nil
	},
}

func init() {
	invokeCmd.Flags().IntVar(&invokeItemID, "item-id", 0, "item to get recommendations for (required)")
	invokeCmd.MarkFlagRequired("item-id")
	rootCmd.AddCommand(invokeCmd)
}
