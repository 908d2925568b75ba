package cmd

import (
	"fmt"
	"time"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/deploy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deployModelName     string
	deployModelData     string
	deployImage         string
	deployRoleARN       string
	deployInstanceType  string
	deployInstanceCount int
	deployVariantName   string
	deployEntryPoint    string
	deployRecreate      bool
	deployTimeout       time.Duration
	deployARNOut        string
)

var deployCmd = &cobra.Command{
	Use:   "deploy <endpoint>",
	Short: "Deploy a new model version and wait until the endpoint is ready",
	Long: `Register a timestamped model version, create its endpoint configuration and
point the endpoint at it, then wait until the endpoint is InService.

Settings come from the tracked endpoint of the same name; flags override them.
An endpoint that is not tracked can be deployed with flags alone.

The command exits non-zero when the endpoint ends Failed or the wait times out.

Examples:
  sagedeploy deploy recommender
  sagedeploy deploy recommender --recreate --arn-out build/endpoint-arn.txt
  sagedeploy deploy scoring --model-data s3://bucket/scoring.tar.gz --image <uri> --role-arn <arn>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		endpoint, found := cfg.FindEndpoint(args[0])
		if !found {
			endpoint = config.Endpoint{Name: args[0]}
		}
		req := deploy.RequestFromEndpoint(overrideEndpoint(cmd, endpoint))
		req.Recreate = deployRecreate
		req.ARNOut = deployARNOut
		req.Timeout = deployTimeout
		if req.Timeout <= 0 {
			if req.Timeout, err = cfg.TimeoutDuration(); err != nil {
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

		d, err := newDeployment(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer d.Close()

		report, err := d.deployer.Deploy(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to deploy %s: %w", req.EndpointName, err)
		}

		fmt.Printf("\nEndpoint:        %s\n", report.Endpoint)
		fmt.Printf("Model:           %s\n", report.Model)
		fmt.Printf("Endpoint Config: %s\n", report.EndpointConfig)
		fmt.Printf("Outcome:         %s (%s)\n", report.Outcome, report.Duration().Round(time.Second))
		if report.EndpointARN != "" {
			fmt.Printf("ARN:             %s\n", report.EndpointARN)
		}
		logger.Debug("Deployment report", zap.String("run_id", report.RunID))

		return outcomeError(report.Endpoint, report.Outcome, report.FailureReason)
	},
}

// overrideEndpoint applies the flags that were set on the command line
func overrideEndpoint(cmd *cobra.Command, e config.Endpoint) config.Endpoint {
	flags := cmd.Flags()
	if flags.Changed("model-name") {
		e.ModelName = deployModelName
	}
	if flags.Changed("model-data") {
		e.ModelData = deployModelData
	}
	if flags.Changed("image") {
		e.Image = deployImage
	}
	if flags.Changed("role-arn") {
		e.RoleARN = deployRoleARN
	}
	if flags.Changed("instance-type") {
		e.InstanceType = deployInstanceType
	}
	if flags.Changed("instance-count") {
		e.InstanceCount = deployInstanceCount
	}
	if flags.Changed("variant") {
		e.VariantName = deployVariantName
	}
	if flags.Changed("entry-point") {
		e.EntryPoint = deployEntryPoint
	}
	return e
}

func init() {
	deployCmd.Flags().StringVar(&deployModelName, "model-name", "", "model base name; a UTC timestamp is appended")
	deployCmd.Flags().StringVar(&deployModelData, "model-data", "", "S3 URL of the model artifact")
	deployCmd.Flags().StringVar(&deployImage, "image", "", "inference container image URI")
	deployCmd.Flags().StringVar(&deployRoleARN, "role-arn", "", "execution role ARN")
	deployCmd.Flags().StringVar(&deployInstanceType, "instance-type", "", "instance type")
	deployCmd.Flags().IntVar(&deployInstanceCount, "instance-count", 0, "initial instance count")
	deployCmd.Flags().StringVar(&deployVariantName, "variant", "", "production variant name")
	deployCmd.Flags().StringVar(&deployEntryPoint, "entry-point", "", "inference script inside the model artifact")
	deployCmd.Flags().BoolVar(&deployRecreate, "recreate", false, "delete an existing endpoint and create it again instead of updating")
	deployCmd.Flags().DurationVar(&deployTimeout, "timeout", 0, "how long to wait for InService (default from config, 15m)")
	deployCmd.Flags().StringVar(&deployARNOut, "arn-out", "", "write the endpoint ARN to this file on success")

	rootCmd.AddCommand(deployCmd)
}
