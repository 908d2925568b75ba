package sagemaker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SubmitDirectory is where the platform unpacks model code inside the container
const SubmitDirectory = "/opt/ml/model/code"

// API is the subset of the SageMaker control plane used by Client
type API interface {
	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
	ListModels(ctx context.Context, params *sagemaker.ListModelsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error)

	CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	DeleteEndpointConfig(ctx context.Context, params *sagemaker.DeleteEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error)
	ListEndpointConfigs(ctx context.Context, params *sagemaker.ListEndpointConfigsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointConfigsOutput, error)
	DescribeEndpointConfig(ctx context.Context, params *sagemaker.DescribeEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointConfigOutput, error)

	CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	UpdateEndpoint(ctx context.Context, params *sagemaker.UpdateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateEndpointOutput, error)
	DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error)
	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	ListEndpoints(ctx context.Context, params *sagemaker.ListEndpointsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error)

	StartPipelineExecution(ctx context.Context, params *sagemaker.StartPipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error)
	DescribePipelineExecution(ctx context.Context, params *sagemaker.DescribePipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineExecutionOutput, error)
}

var _ API = (*sagemaker.Client)(nil)

// ModelSpec describes a model to register
type ModelSpec struct {
	Name       string
	Image      string
	ModelData  string
	RoleARN    string
	EntryPoint string
}

// EndpointConfigSpec describes a single-variant endpoint configuration
type EndpointConfigSpec struct {
	Name          string
	ModelName     string
	VariantName   string
	InstanceType  string
	InstanceCount int
}

// EndpointDescription is what DescribeEndpoint reports about an endpoint
type EndpointDescription struct {
	Name          string
	ARN           string
	ConfigName    string
	Status        string
	FailureReason string
	CreatedAt     time.Time
	ModifiedAt    time.Time
}

// Client wraps the SageMaker control plane
type Client struct {
	api    API
	logger *zap.Logger
}

// NewClient creates a new client around an API implementation
func NewClient(api API, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger}
}

// NewFromConfig creates a client backed by the AWS SDK
func NewFromConfig(cfg aws.Config, logger *zap.Logger) *Client {
	return NewClient(sagemaker.NewFromConfig(cfg), logger)
}

// CreateModel registers a model and returns its ARN
func (c *Client) CreateModel(ctx context.Context, spec ModelSpec) (string, error) {
	container := &types.ContainerDefinition{
		Image:        aws.String(spec.Image),
		ModelDataUrl: aws.String(spec.ModelData),
	}
	if spec.EntryPoint != "" {
		container.Environment = map[string]string{
			"SAGEMAKER_PROGRAM":          spec.EntryPoint,
			"SAGEMAKER_SUBMIT_DIRECTORY": SubmitDirectory,
		}
	}

	out, err := c.api.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(spec.Name),
		ExecutionRoleArn: aws.String(spec.RoleARN),
		PrimaryContainer: container,
	})
	if err != nil {
		return "", wrap("create model "+spec.Name, err)
	}

	c.logger.Info("Model created", zap.String("model", spec.Name))
	return aws.ToString(out.ModelArn), nil
}

// ModelExists reports whether a model with exactly this name exists
func (c *Client) ModelExists(ctx context.Context, name string) (bool, error) {
	p := sagemaker.NewListModelsPaginator(c.api, &sagemaker.ListModelsInput{NameContains: aws.String(name)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, wrap("list models", err)
		}
		if lo.ContainsBy(page.Models, func(m types.ModelSummary) bool { return aws.ToString(m.ModelName) == name }) {
			return true, nil
		}
	}
	return false, nil
}

// DeleteModel deletes a model
func (c *Client) DeleteModel(ctx context.Context, name string) error {
	if _, err := c.api.DeleteModel(ctx, &sagemaker.DeleteModelInput{ModelName: aws.String(name)}); err != nil {
		return wrap("delete model "+name, err)
	}
	c.logger.Info("Model deleted", zap.String("model", name))
	return nil
}

// CreateEndpointConfig creates an endpoint configuration with one production variant
func (c *Client) CreateEndpointConfig(ctx context.Context, spec EndpointConfigSpec) (string, error) {
	out, err := c.api.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(spec.Name),
		ProductionVariants: []types.ProductionVariant{
			{
				VariantName:          aws.String(spec.VariantName),
				ModelName:            aws.String(spec.ModelName),
				InstanceType:         types.ProductionVariantInstanceType(spec.InstanceType),
				InitialInstanceCount: aws.Int32(int32(spec.InstanceCount)),
				InitialVariantWeight: aws.Float32(1),
			},
		},
	})
	if err != nil {
		return "", wrap("create endpoint config "+spec.Name, err)
	}

	c.logger.Info("Endpoint config created", zap.String("endpoint_config", spec.Name))
	return aws.ToString(out.EndpointConfigArn), nil
}

// EndpointConfigExists reports whether an endpoint configuration with exactly this name exists
func (c *Client) EndpointConfigExists(ctx context.Context, name string) (bool, error) {
	p := sagemaker.NewListEndpointConfigsPaginator(c.api, &sagemaker.ListEndpointConfigsInput{NameContains: aws.String(name)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, wrap("list endpoint configs", err)
		}
		if lo.ContainsBy(page.EndpointConfigs, func(s types.EndpointConfigSummary) bool {
			return aws.ToString(s.EndpointConfigName) == name
		}) {
			return true, nil
		}
	}
	return false, nil
}

// EndpointConfigModels returns the models served by an endpoint configuration
func (c *Client) EndpointConfigModels(ctx context.Context, name string) ([]string, error) {
	out, err := c.api.DescribeEndpointConfig(ctx, &sagemaker.DescribeEndpointConfigInput{EndpointConfigName: aws.String(name)})
	if err != nil {
		return nil, wrap("describe endpoint config "+name, err)
	}
	return lo.Uniq(lo.Map(out.ProductionVariants, func(v types.ProductionVariant, _ int) string {
		return aws.ToString(v.ModelName)
	})), nil
}

// DeleteEndpointConfig deletes an endpoint configuration
func (c *Client) DeleteEndpointConfig(ctx context.Context, name string) error {
	if _, err := c.api.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{EndpointConfigName: aws.String(name)}); err != nil {
		return wrap("delete endpoint config "+name, err)
	}
	c.logger.Info("Endpoint config deleted", zap.String("endpoint_config", name))
	return nil
}

// EndpointExists reports whether an endpoint with exactly this name exists
func (c *Client) EndpointExists(ctx context.Context, name string) (bool, error) {
	p := sagemaker.NewListEndpointsPaginator(c.api, &sagemaker.ListEndpointsInput{NameContains: aws.String(name)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, wrap("list endpoints", err)
		}
		if lo.ContainsBy(page.Endpoints, func(s types.EndpointSummary) bool { return aws.ToString(s.EndpointName) == name }) {
			return true, nil
		}
	}
	return false, nil
}

// CreateEndpoint creates an endpoint from a configuration and returns its ARN
func (c *Client) CreateEndpoint(ctx context.Context, name, configName string) (string, error) {
	out, err := c.api.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return "", wrap("create endpoint "+name, err)
	}

	c.logger.Info("Endpoint creation started", zap.String("endpoint", name), zap.String("endpoint_config", configName))
	return aws.ToString(out.EndpointArn), nil
}

// UpdateEndpoint points an existing endpoint at a new configuration
func (c *Client) UpdateEndpoint(ctx context.Context, name, configName string) (string, error) {
	out, err := c.api.UpdateEndpoint(ctx, &sagemaker.UpdateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return "", wrap("update endpoint "+name, err)
	}

	c.logger.Info("Endpoint update started", zap.String("endpoint", name), zap.String("endpoint_config", configName))
	return aws.ToString(out.EndpointArn), nil
}

// DescribeEndpoint returns the current state of an endpoint
func (c *Client) DescribeEndpoint(ctx context.Context, name string) (EndpointDescription, error) {
	out, err := c.api.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{EndpointName: aws.String(name)})
	if err != nil {
		return EndpointDescription{}, wrap("describe endpoint "+name, err)
	}

	return EndpointDescription{
		Name:          aws.ToString(out.EndpointName),
		ARN:           aws.ToString(out.EndpointArn),
		ConfigName:    aws.ToString(out.EndpointConfigName),
		Status:        string(out.EndpointStatus),
		FailureReason: aws.ToString(out.FailureReason),
		CreatedAt:     aws.ToTime(out.CreationTime),
		ModifiedAt:    aws.ToTime(out.LastModifiedTime),
	}, nil
}

// EndpointStatus returns the status and failure reason of an endpoint
func (c *Client) EndpointStatus(ctx context.Context, name string) (string, string, error) {
	d, err := c.DescribeEndpoint(ctx, name)
	if err != nil {
		return "", "", err
	}
	return d.Status, d.FailureReason, nil
}

// DeleteEndpoint starts deleting an endpoint
func (c *Client) DeleteEndpoint(ctx context.Context, name string) error {
	if _, err := c.api.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{EndpointName: aws.String(name)}); err != nil {
		return wrap("delete endpoint "+name, err)
	}
	c.logger.Info("Endpoint deletion started", zap.String("endpoint", name))
	return nil
}

// WaitEndpointDeleted blocks until the endpoint is gone or maxWait passes
func (c *Client) WaitEndpointDeleted(ctx context.Context, name string, maxWait time.Duration) error {
	waiter := sagemaker.NewEndpointDeletedWaiter(c.api)
	if err := waiter.Wait(ctx, &sagemaker.DescribeEndpointInput{EndpointName: aws.String(name)}, maxWait); err != nil {
		return fmt.Errorf("failed waiting for endpoint %s to be deleted: %w", name, err)
	}
	c.logger.Info("Endpoint deleted", zap.String("endpoint", name))
	return nil
}
