package sagemaker

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// RuntimeAPI is the subset of the SageMaker runtime used by Runtime
type RuntimeAPI interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

var _ RuntimeAPI = (*sagemakerruntime.Client)(nil)

// Runtime calls deployed endpoints
type Runtime struct {
	api RuntimeAPI
}

// NewRuntime creates a new runtime client
func NewRuntime(api RuntimeAPI) *Runtime {
	return &Runtime{api: api}
}

// NewRuntimeFromConfig creates a runtime client backed by the AWS SDK
func NewRuntimeFromConfig(cfg aws.Config) *Runtime {
	return NewRuntime(sagemakerruntime.NewFromConfig(cfg))
}

// Invoke sends body to an endpoint and returns the raw response
func (r *Runtime) Invoke(ctx context.Context, endpoint, contentType string, body []byte) ([]byte, error) {
	out, err := r.api.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpoint),
		ContentType:  aws.String(contentType),
		Accept:       aws.String(contentType),
		Body:         body,
	})
	if err != nil {
		return nil, wrap("invoke endpoint "+endpoint, err)
	}
	return out.Body, nil
}
