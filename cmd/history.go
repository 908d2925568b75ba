package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded deployments",
	Long: `Show the most recent deployments, newest first, or the details of one run.

Examples:
  sagedeploy history --limit 5
  sagedeploy history 0190f2a4-7c1e-7b55-9d2e-8f0a1b2c3d4e`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		path, err := cfg.ResolvedHistoryPath()
		if err != nil {
			return err
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			d, err := store.Get(args[0])
			if err != nil {
				return err
			}
			printDeployment(d)
			return nil
		}

		deployments, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if len(deployments) == 0 {
			fmt.Println("No deployments recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tENDPOINT\tMODEL\tOUTCOME\tDURATION\tID")
		for _, d := range deployments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				d.StartedAt.Local().Format("2006-01-02 15:04"),
				d.Endpoint, d.Model, d.Outcome, d.Duration().Round(time.Second), d.ID)
		}
		return w.Flush()
	},
}

func printDeployment(d history.Deployment) {
	fmt.Printf("Deployment: %s\n", d.ID)
	fmt.Println("─────────────────────────────────────")
	fmt.Printf("Endpoint:         %s\n", d.Endpoint)
	fmt.Printf("Model:            %s\n", d.Model)
	fmt.Printf("Endpoint Config:  %s\n", d.EndpointConfig)
	if d.ModelARN != "" {
		fmt.Printf("Model ARN:        %s\n", d.ModelARN)
	}
	if d.EndpointARN != "" {
		fmt.Printf("Endpoint ARN:     %s\n", d.EndpointARN)
	}
	fmt.Printf("Outcome:          %s\n", d.Outcome)
	fmt.Printf("Started:          %s\n", d.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration:         %s\n", d.Duration().Round(time.Second))
	if d.Error != "" {
		fmt.Printf("Error:            %s\n", d.Error)
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of deployments to show")
	rootCmd.AddCommand(historyCmd)
}
