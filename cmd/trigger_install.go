package cmd

import (
	"fmt"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/provision"
	"github.com/raulk/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	triggerPipeline = "pipeline"
	triggerAlarm    = "alarm"
)

var (
	triggerFunction       string
	triggerRoleName       string
	triggerBinary         string
	triggerAccount        string
	triggerBucket         string
	triggerPrefix         string
	triggerPipelineName   string
	triggerEmailSource    string
	triggerEmailRecipient string
	triggerTopicARN       string
	triggerPolicyName     string
)

var triggerInstallCmd = &cobra.Command{
	Use:   "trigger:install <pipeline|alarm>",
	Short: "Provision the functions that react to uploads and alarms",
	Long: `Create the IAM role, function and trigger wiring for one of the handlers.

pipeline: starts a SageMaker pipeline whenever a .csv file lands under the bucket prefix.
alarm:    forwards CloudWatch alarm state changes to an SNS topic.

Build the handler for linux first, then pass it with --binary. It is uploaded as 'bootstrap'.

Examples:
  sagedeploy trigger:install pipeline --binary dist/pipelinetrigger --account 123456789012 \
    --bucket training-data --prefix uploads/ --pipeline retrain
  sagedeploy trigger:install alarm --binary dist/alarmnotifier --account 123456789012 \
    --sns-topic-arn arn:aws:sns:us-east-1:123456789012:alarms`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{triggerPipeline, triggerAlarm},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]

		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		zipFile, err := provision.ZipBootstrap(triggerBinary)
		if err != nil {
			return err
		}

		spec := provision.TriggerSpec{
			RoleName: triggerRoleName,
			Region:   resolveRegion(cfg),
			Account:  triggerAccount,
			Function: provision.FunctionSpec{
				Name:    triggerFunction,
				ZipFile: zipFile,
			},
		}

		switch kind {
		case triggerPipeline:
			if triggerBucket == "" || triggerPipelineName == "" {
				return fmt.Errorf("pipeline trigger needs --bucket and --pipeline")
			}
			spec.RoleDescription = "Starts SageMaker pipelines on new training data"
			spec.Bucket = triggerBucket
			spec.Prefix = triggerPrefix
			spec.Function.Description = "Start pipeline " + triggerPipelineName
			spec.Function.Environment = map[string]string{"PIPELINE_NAME": triggerPipelineName}
			if triggerEmailSource != "" && triggerEmailRecipient != "" {
				spec.Function.Environment["EMAIL_SOURCE"] = triggerEmailSource
				spec.Function.Environment["EMAIL_RECIPIENT"] = triggerEmailRecipient
			}
		case triggerAlarm:
			topic := triggerTopicARN
			if topic == "" {
				topic = cfg.Notifications.SNSTopicARN
			}
			if topic == "" {
				return fmt.Errorf("alarm notifier needs --sns-topic-arn or notifications.sns_topic_arn")
			}
			spec.RoleDescription = "Forwards CloudWatch alarms to SNS"
			spec.SNSTopicARN = topic
			spec.SNSPolicyName = triggerPolicyName
			spec.Function.Description = "Forward CloudWatch alarms"
			spec.Function.Environment = map[string]string{"SNS_TOPIC_ARN": topic}
		default:
			return fmt.Errorf("unknown trigger %q (want %s or %s)", kind, triggerPipeline, triggerAlarm)
		}
		if spec.Region == "" {
			return fmt.Errorf("region is required (--region or AWS_REGION)")
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := signalContext()
		defer cancel()

		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}

		inst, err := provision.NewFromConfig(awsCfg, clock.New(), logger).Install(ctx, spec)
		if err != nil {
			return fmt.Errorf("failed to install %s trigger: %w", kind, err)
		}

		logger.Info("Trigger installed", zap.String("function", inst.FunctionARN))
		fmt.Printf("✓ Role:     %s\n", inst.RoleARN)
		if inst.PolicyARN != "" {
			fmt.Printf("✓ Policy:   %s\n", inst.PolicyARN)
		}
		fmt.Printf("✓ Function: %s\n", inst.FunctionARN)
		return nil
	},
}

func init() {
	triggerInstallCmd.Flags().StringVar(&triggerBinary, "binary", "", "path to the compiled handler (required)")
	triggerInstallCmd.Flags().StringVar(&triggerAccount, "account", "", "AWS account id (required)")
	triggerInstallCmd.Flags().StringVar(&triggerFunction, "function", "", "function name (default <kind>-trigger)")
	triggerInstallCmd.Flags().StringVar(&triggerRoleName, "role-name", "", "IAM role name (default <function>-role)")
	triggerInstallCmd.Flags().StringVar(&triggerBucket, "bucket", "", "bucket whose uploads start the pipeline")
	triggerInstallCmd.Flags().StringVar(&triggerPrefix, "prefix", "", "key prefix to watch")
	triggerInstallCmd.Flags().StringVar(&triggerPipelineName, "pipeline", "", "pipeline to start")
	triggerInstallCmd.Flags().StringVar(&triggerEmailSource, "email-source", "", "sender address for pipeline start emails")
	triggerInstallCmd.Flags().StringVar(&triggerEmailRecipient, "email-recipient", "", "recipient of pipeline start emails")
	triggerInstallCmd.Flags().StringVar(&triggerTopicARN, "sns-topic-arn", "", "topic alarms are forwarded to")
	triggerInstallCmd.Flags().StringVar(&triggerPolicyName, "policy-name", "lambda-sns-trigger-policy", "customer policy granting publish on the topic")

	triggerInstallCmd.MarkFlagRequired("binary")
	triggerInstallCmd.MarkFlagRequired("account")

	triggerInstallCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if triggerFunction == "" && len(args) > 0 {
			triggerFunction = args[0] + "-trigger"
		}
		if triggerRoleName == "" {
			triggerRoleName = triggerFunction + "-role"
		}
	}

	rootCmd.AddCommand(triggerInstallCmd)
}
