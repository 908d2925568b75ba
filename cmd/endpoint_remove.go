package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/spf13/cobra"
)

var (
	forceRemove bool
)

var endpointRemoveCmd = &cobra.Command{
	Use:   "endpoint:remove <name>",
	Short: "Stop tracking an endpoint",
	Long: `Remove an endpoint by name from your sagedeploy configuration. The deployed
endpoint is left running; use 'sagedeploy teardown' to delete it.

Example:
  sagedeploy endpoint:remove recommender
  sagedeploy endpoint:remove scoring --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if !forceRemove && !confirm(fmt.Sprintf("Remove endpoint '%s'?", name)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := cfg.RemoveEndpoint(name); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()
		fmt.Printf("✓ Removed endpoint '%s' from %s\n", name, configPath)

		return nil
	},
}

// confirm asks a yes/no question on stdin
func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func init() {
	endpointRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "skip confirmation prompt")
	rootCmd.AddCommand(endpointRemoveCmd)
}
