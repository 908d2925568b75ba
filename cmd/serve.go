package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/juststeveking/sagedeploy/internal/inference"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveModelDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inference server inside a model container",
	Long: `Load the recommendation model and serve /ping and /invocations.

The port is read from SAGEMAKER_BIND_TO_PORT and defaults to 8080.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		port, err := bindPort()
		if err != nil {
			return err
		}

		model, err := inference.LoadModel(serveModelDir)
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}
		logger.Info("Model loaded", zap.String("dir", serveModelDir), zap.Int("items", model.Len()))

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		ctx, cancel := signalContext()
		defer cancel()

		return inference.NewServer(model, reg, logger).ListenAndServe(ctx, fmt.Sprintf(":%d", port))
	},
}

// bindPort reads SAGEMAKER_BIND_TO_PORT
func bindPort() (int, error) {
	value := os.Getenv("SAGEMAKER_BIND_TO_PORT")
	if value == "" {
		return inference.DefaultPort, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid SAGEMAKER_BIND_TO_PORT %q", value)
	}
	return port, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveModelDir, "model-dir", inference.DefaultModelDir, "directory holding the model artifact")
	rootCmd.AddCommand(serveCmd)
}
