package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/spf13/cobra"
)

var (
	endpointName          string
	endpointModelName     string
	endpointModelData     string
	endpointImage         string
	endpointRoleARN       string
	endpointInstanceType  string
	endpointInstanceCount int
	endpointVariantName   string
	endpointEntryPoint    string
)

var endpointAddCmd = &cobra.Command{
	Use:   "endpoint:add",
	Short: "Track a new deployment target",
	Long: `Add a new endpoint to your sagedeploy configuration.

Values may reference environment variables with ${VAR}; they are expanded at deploy time.

Examples:
  sagedeploy endpoint:add --name recommender --model-data s3://bucket/model/model.tar.gz \
    --image '${INFERENCE_IMAGE_URI}' --role-arn '${SAGEMAKER_ROLE_ARN}'
  sagedeploy endpoint:add --name scoring --model-data s3://bucket/scoring.tar.gz \
    --image 123456789012.dkr.ecr.us-east-1.amazonaws.com/scoring:latest \
    --role-arn arn:aws:iam::123456789012:role/sagemaker --instance-type ml.c5.xlarge --instance-count 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if endpointName == "" {
			return fmt.Errorf("endpoint name is required (--name)")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		endpoint := config.Endpoint{
			Name:          endpointName,
			ModelName:     endpointModelName,
			ModelData:     endpointModelData,
			Image:         endpointImage,
			RoleARN:       endpointRoleARN,
			InstanceType:  endpointInstanceType,
			InstanceCount: endpointInstanceCount,
			VariantName:   endpointVariantName,
			EntryPoint:    endpointEntryPoint,
		}

		if err := cfg.AddEndpoint(endpoint); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()
		fmt.Printf("✓ Added endpoint '%s' to %s\n", endpointName, configPath)

		return nil
	},
}

func init() {
	endpointAddCmd.Flags().StringVarP(&endpointName, "name", "n", "", "endpoint name (required)")
	endpointAddCmd.Flags().StringVar(&endpointModelName, "model-name", "", "model base name (defaults to the endpoint name)")
	endpointAddCmd.Flags().StringVar(&endpointModelData, "model-data", "", "S3 URL of the model artifact")
	endpointAddCmd.Flags().StringVar(&endpointImage, "image", "", "inference container image URI")
	endpointAddCmd.Flags().StringVar(&endpointRoleARN, "role-arn", "", "execution role ARN")
	endpointAddCmd.Flags().StringVar(&endpointInstanceType, "instance-type", "", "instance type (default "+config.DefaultInstanceType+")")
	endpointAddCmd.Flags().IntVar(&endpointInstanceCount, "instance-count", 0, "initial instance count (default 1)")
	endpointAddCmd.Flags().StringVar(&endpointVariantName, "variant", "", "production variant name (default "+config.DefaultVariantName+")")
	endpointAddCmd.Flags().StringVar(&endpointEntryPoint, "entry-point", "", "inference script inside the model artifact")

	endpointAddCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(endpointAddCmd)
}
