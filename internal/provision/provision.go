package provision

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// RolePropagationDelay is how long a new role needs before it can be used
	RolePropagationDelay = 10 * time.Second

	functionHandler = "bootstrap"
	functionTimeout = 10
	functionMemory  = 128
	triggerSuffix   = ".csv"
)

// IAMAPI is the subset of the IAM client used by Provisioner
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	CreatePolicy(ctx context.Context, params *iam.CreatePolicyInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyOutput, error)
	ListPolicies(ctx context.Context, params *iam.ListPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListPoliciesOutput, error)
}

// LambdaAPI is the subset of the Lambda client used by Provisioner
type LambdaAPI interface {
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// S3API is the subset of the S3 client used by Provisioner
type S3API interface {
	PutBucketNotificationConfiguration(ctx context.Context, params *s3.PutBucketNotificationConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error)
}

var (
	_ IAMAPI    = (*iam.Client)(nil)
	_ LambdaAPI = (*lambda.Client)(nil)
	_ S3API     = (*s3.Client)(nil)
)

// Clock is what the provisioner needs to wait and stamp statement ids
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Provisioner wires an S3 upload trigger to a function
type Provisioner struct {
	iam    IAMAPI
	lambda LambdaAPI
	s3     S3API
	clock  Clock
	logger *zap.Logger
}

// NewProvisioner creates a new provisioner
func NewProvisioner(iamAPI IAMAPI, lambdaAPI LambdaAPI, s3API S3API, clk Clock, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{iam: iamAPI, lambda: lambdaAPI, s3: s3API, clock: clk, logger: logger}
}

// NewFromConfig creates a provisioner backed by the AWS SDK
func NewFromConfig(cfg aws.Config, clk Clock, logger *zap.Logger) *Provisioner {
	return NewProvisioner(iam.NewFromConfig(cfg), lambda.NewFromConfig(cfg), s3.NewFromConfig(cfg), clk, logger)
}

// CreateRole creates a role the function service can assume, waits for it
// to propagate and attaches the managed policies. It returns the role ARN.
func (p *Provisioner) CreateRole(ctx context.Context, name, description string, policyARNs []string) (string, error) {
	out, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(lambdaTrustPolicy()),
		Description:              aws.String(description),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create role %s: %w", name, err)
	}
	p.logger.Info("Role created", zap.String("role", name))

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.clock.After(RolePropagationDelay):
	}

	for _, arn := range policyARNs {
		if err := p.AttachPolicy(ctx, name, arn); err != nil {
			return "", err
		}
	}

	return aws.ToString(out.Role.Arn), nil
}

// AttachPolicy attaches a policy to a role
func (p *Provisioner) AttachPolicy(ctx context.Context, role, policyARN string) error {
	_, err := p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(role),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", policyARN, role, err)
	}
	p.logger.Debug("Policy attached", zap.String("role", role), zap.String("policy", policyARN))
	return nil
}

// SNSPolicySpec describes the customer policy a publishing function needs
type SNSPolicySpec struct {
	Name     string
	Region   string
	Account  string
	Function string
	TopicARN string
}

// EnsureSNSPolicy creates the publish policy unless one with that name
// already exists. It returns the policy ARN either way.
func (p *Provisioner) EnsureSNSPolicy(ctx context.Context, spec SNSPolicySpec) (string, error) {
	pages := iam.NewListPoliciesPaginator(p.iam, &iam.ListPoliciesInput{Scope: iamtypes.PolicyScopeTypeLocal})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list policies: %w", err)
		}
		if existing, ok := lo.Find(page.Policies, func(pol iamtypes.Policy) bool {
			return aws.ToString(pol.PolicyName) == spec.Name
		}); ok {
			p.logger.Info("Policy already exists", zap.String("policy", spec.Name))
			return aws.ToString(existing.Arn), nil
		}
	}

	out, err := p.iam.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(spec.Name),
		PolicyDocument: aws.String(snsPublishPolicy(spec.Region, spec.Account, spec.Function, spec.TopicARN)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create policy %s: %w", spec.Name, err)
	}
	p.logger.Info("Policy created", zap.String("policy", spec.Name))
	return aws.ToString(out.Policy.Arn), nil
}

// FunctionSpec describes a function built from a zipped bootstrap binary
type FunctionSpec struct {
	Name        string
	Description string
	RoleARN     string
	ZipFile     []byte
	Environment map[string]string
}

// CreateFunction creates and publishes a function and returns its ARN
func (p *Provisioner) CreateFunction(ctx context.Context, spec FunctionSpec) (string, error) {
	in := &lambda.CreateFunctionInput{
		FunctionName: aws.String(spec.Name),
		Description:  aws.String(spec.Description),
		Role:         aws.String(spec.RoleARN),
		Handler:      aws.String(functionHandler),
		Runtime:      lambdatypes.Runtime("provided.al2023"),
		Code:         &lambdatypes.FunctionCode{ZipFile: spec.ZipFile},
		Timeout:      aws.Int32(functionTimeout),
		MemorySize:   aws.Int32(functionMemory),
		Publish:      true,
	}
	if len(spec.Environment) > 0 {
		in.Environment = &lambdatypes.Environment{Variables: spec.Environment}
	}

	out, err := p.lambda.CreateFunction(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to create function %s: %w", spec.Name, err)
	}
	p.logger.Info("Function created", zap.String("function", spec.Name))
	return aws.ToString(out.FunctionArn), nil
}

// AllowS3 lets the bucket invoke the function
func (p *Provisioner) AllowS3(ctx context.Context, function, bucketARN, account string) error {
	_, err := p.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:  aws.String(function),
		StatementId:   aws.String("S3-Trigger-Lambda-" + strconv.FormatInt(p.clock.Now().Unix(), 10)),
		Action:        aws.String("lambda:InvokeFunction"),
		Principal:     aws.String("s3.amazonaws.com"),
		SourceArn:     aws.String(bucketARN),
		SourceAccount: aws.String(account),
	})
	if err != nil {
		return fmt.Errorf("failed to allow %s to invoke %s: %w", bucketARN, function, err)
	}
	p.logger.Info("Bucket allowed to invoke function", zap.String("function", function), zap.String("bucket", bucketARN))
	return nil
}

// AddNotification invokes functionARN for every .csv object created under prefix
func (p *Provisioner) AddNotification(ctx context.Context, bucket, prefix, functionARN string) error {
	_, err := p.s3.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &s3types.NotificationConfiguration{
			LambdaFunctionConfigurations: []s3types.LambdaFunctionConfiguration{{
				LambdaFunctionArn: aws.String(functionARN),
				Events: []s3types.Event{
					s3types.Event("s3:ObjectCreated:Put"),
					s3types.Event("s3:ObjectCreated:CompleteMultipartUpload"),
				},
				Filter: &s3types.NotificationConfigurationFilter{
					Key: &s3types.S3KeyFilter{
						FilterRules: []s3types.FilterRule{
							{Name: s3types.FilterRuleNameSuffix, Value: aws.String(triggerSuffix)},
							{Name: s3types.FilterRuleNamePrefix, Value: aws.String(prefix)},
						},
					},
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to configure notifications on %s: %w", bucket, err)
	}
	p.logger.Info("Bucket notification configured", zap.String("bucket", bucket), zap.String("prefix", prefix))
	return nil
}

// CreateS3Trigger allows the bucket to invoke the function and subscribes it
func (p *Provisioner) CreateS3Trigger(ctx context.Context, function, bucket, prefix, account, functionARN string) error {
	if err := p.AllowS3(ctx, function, BucketARN(bucket), account); err != nil {
		return err
	}
	return p.AddNotification(ctx, bucket, prefix, functionARN)
}

// TriggerSpec describes a complete upload trigger installation
type TriggerSpec struct {
	RoleName        string
	RoleDescription string
	Function        FunctionSpec
	Region          string
	Account         string

	// Bucket and Prefix select the uploads that invoke the function. An
	// empty Bucket skips the S3 trigger.
	Bucket string
	Prefix string

	// SNSTopicARN grants the function permission to publish when set
	SNSTopicARN   string
	SNSPolicyName string
}

// Installation is what Install created
type Installation struct {
	RoleARN     string
	PolicyARN   string
	FunctionARN string
}

// Install creates the role, the optional publish policy, the function and
// the bucket trigger, in that order.
func (p *Provisioner) Install(ctx context.Context, spec TriggerSpec) (Installation, error) {
	var inst Installation

	policies := DefaultPolicyARNs
	if spec.SNSTopicARN != "" {
		policies = append(append([]string(nil), DefaultPolicyARNs...), NotifierPolicyARNs...)
	}

	roleARN, err := p.CreateRole(ctx, spec.RoleName, spec.RoleDescription, policies)
	if err != nil {
		return inst, err
	}
	inst.RoleARN = roleARN

	if spec.SNSTopicARN != "" {
		policyARN, err := p.EnsureSNSPolicy(ctx, SNSPolicySpec{
			Name:     spec.SNSPolicyName,
			Region:   spec.Region,
			Account:  spec.Account,
			Function: spec.Function.Name,
			TopicARN: spec.SNSTopicARN,
		})
		if err != nil {
			return inst, err
		}
		if err := p.AttachPolicy(ctx, spec.RoleName, policyARN); err != nil {
			return inst, err
		}
		inst.PolicyARN = policyARN
	}

	fn := spec.Function
	fn.RoleARN = roleARN
	functionARN, err := p.CreateFunction(ctx, fn)
	if err != nil {
		return inst, err
	}
	inst.FunctionARN = functionARN

	if spec.Bucket != "" {
		if err := p.CreateS3Trigger(ctx, fn.Name, spec.Bucket, spec.Prefix, spec.Account, functionARN); err != nil {
			return inst, err
		}
	}

	return inst, nil
}
