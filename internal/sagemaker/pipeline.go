package sagemaker

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"go.uber.org/zap"
)

// PipelineExecution is the state of one pipeline run
type PipelineExecution struct {
	ARN           string
	DisplayName   string
	Status        string
	FailureReason string
	StartedAt     time.Time
	ModifiedAt    time.Time
}

// StartPipelineExecution starts a pipeline run and returns its ARN
func (c *Client) StartPipelineExecution(ctx context.Context, pipeline, displayName, description string) (string, error) {
	in := &sagemaker.StartPipelineExecutionInput{
		PipelineName: aws.String(pipeline),
	}
	if displayName != "" {
		in.PipelineExecutionDisplayName = aws.String(displayName)
	}
	if description != "" {
		in.PipelineExecutionDescription = aws.String(description)
	}

	out, err := c.api.StartPipelineExecution(ctx, in)
	if err != nil {
		return "", wrap("start pipeline "+pipeline, err)
	}

	arn := aws.ToString(out.PipelineExecutionArn)
	c.logger.Info("Pipeline execution started", zap.String("pipeline", pipeline), zap.String("execution_arn", arn))
	return arn, nil
}

// PipelineExecutionStatus describes a pipeline run
func (c *Client) PipelineExecutionStatus(ctx context.Context, arn string) (PipelineExecution, error) {
	out, err := c.api.DescribePipelineExecution(ctx, &sagemaker.DescribePipelineExecutionInput{
		PipelineExecutionArn: aws.String(arn),
	})
	if err != nil {
		return PipelineExecution{}, wrap("describe pipeline execution", err)
	}

	return PipelineExecution{
		ARN:           aws.ToString(out.PipelineExecutionArn),
		DisplayName:   aws.ToString(out.PipelineExecutionDisplayName),
		Status:        string(out.PipelineExecutionStatus),
		FailureReason: aws.ToString(out.FailureReason),
		StartedAt:     aws.ToTime(out.CreationTime),
		ModifiedAt:    aws.ToTime(out.LastModifiedTime),
	}, nil
}
