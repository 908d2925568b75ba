package cmd

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/logging"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/juststeveking/sagedeploy/internal/tui"
	"github.com/raulk/clock"
	"github.com/spf13/cobra"
)

var (
	region   string
	logLevel string
	devLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "sagedeploy",
	Short: "Deploy SageMaker endpoints and watch them become ready",
	Long: `sagedeploy registers model versions, rolls them out to SageMaker endpoints and
waits until each endpoint is serving traffic.

Run without a subcommand to open a live dashboard of every endpoint tracked in
~/.config/sagedeploy/config.yml.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Println("Config not found, creating default config...")
				if initErr := config.InitConfig(false); initErr != nil {
					return fmt.Errorf("failed to create default config: %w", initErr)
				}
				cfg, err = config.LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config after creation: %w", err)
				}
			} else {
				return fmt.Errorf("failed to load config: %w (run 'sagedeploy init' to create one)", err)
			}
		}

		interval, err := cfg.PollIntervalDuration()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}

		// The dashboard owns the terminal, so the watcher logs nowhere
		client := sagemaker.NewFromConfig(awsCfg, logging.Nop())
		w := monitor.NewWatcher(client, clock.New(), interval, cfg.EndpointNames(), logging.Nop())
		go w.Start(ctx)

		model := tui.NewModel(cfg, w, cancel)
		p := tea.NewProgram(model, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (defaults to $AWS_REGION, then the config file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human readable development logging")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
