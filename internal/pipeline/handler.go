package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

const maxDisplayNameLength = 82

// ErrNoRecords is returned for events that carry no S3 records
var ErrNoRecords = errors.New("event has no S3 records")

// Args is the handler configuration, read from the environment
type Args struct {
	Region         string `arg:"--region,env:AWS_REGION" help:"AWS region"`
	PipelineName   string `arg:"--pipeline-name,env:PIPELINE_NAME,required" help:"pipeline to start"`
	EmailSource    string `arg:"--email-source,env:EMAIL_SOURCE" help:"sender of the pipeline started email"`
	EmailRecipient string `arg:"--email-recipient,env:EMAIL_RECIPIENT" help:"recipient of the pipeline started email"`
}

// ParseArgs reads Args from the environment
func ParseArgs() (Args, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return args, err
	}
	if err := p.Parse(nil); err != nil {
		return args, fmt.Errorf("failed to read pipeline trigger configuration: %w", err)
	}
	return args, nil
}

// Starter starts pipeline executions
type Starter interface {
	StartPipelineExecution(ctx context.Context, pipeline, displayName, description string) (string, error)
}

// Mailer is the subset of the SES v2 client used for the optional email
type Mailer interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var _ Mailer = (*sesv2.Client)(nil)

// Response is returned to the function runtime
type Response struct {
	StatusCode int     `json:"statusCode"`
	Msg        Message `json:"msg"`
}

// Message carries the started execution
type Message struct {
	PipelineExecutionArn string `json:"PipelineExecutionArn"`
}

// Handler starts a pipeline execution for every uploaded object
type Handler struct {
	args    Args
	starter Starter
	mailer  Mailer
	logger  *zap.Logger
}

// NewHandler creates a new handler. mailer may be nil.
func NewHandler(args Args, starter Starter, mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{args: args, starter: starter, mailer: mailer, logger: logger}
}

// Handle starts the pipeline for the first record of an S3 event
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	if len(event.Records) == 0 {
		return Response{}, ErrNoRecords
	}

	record := event.Records[0].S3
	key, err := url.QueryUnescape(record.Object.Key)
	if err != nil {
		return Response{}, fmt.Errorf("failed to decode object key %q: %w", record.Object.Key, err)
	}
	logger := h.logger.With(zap.String("bucket", record.Bucket.Name), zap.String("key", key))

	arn, err := h.starter.StartPipelineExecution(ctx, h.args.PipelineName, DisplayName(key), key)
	if err != nil {
		return Response{}, fmt.Errorf("failed to start pipeline %s: %w", h.args.PipelineName, err)
	}
	logger.Info("Pipeline execution started", zap.String("execution_arn", arn))

	if h.mailer != nil && h.args.EmailSource != "" && h.args.EmailRecipient != "" {
		if err := h.sendEmail(ctx, record.Bucket.Name, key, arn); err != nil {
			logger.Warn("Failed to send pipeline started email", zap.Error(err))
		}
	}

	return Response{StatusCode: 200, Msg: Message{PipelineExecutionArn: arn}}, nil
}

func (h *Handler) sendEmail(ctx context.Context, bucket, key, arn string) error {
	subject := fmt.Sprintf("Pipeline %s started", h.args.PipelineName)
	body := fmt.Sprintf("A new file was uploaded to s3://%s/%s.\n\nPipeline execution: %s\n", bucket, key, arn)

	_, err := h.mailer.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(h.args.EmailSource),
		Destination:      &sestypes.Destination{ToAddresses: []string{h.args.EmailRecipient}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(body)}},
			},
		},
	})
	return err
}

// DisplayName derives an execution display name from an object key: the
// file name with every underscore and ".csv" removed, at most 82 characters.
func DisplayName(key string) string {
	name := path.Base(key)
	name = strings.ReplaceAll(name, ".csv", "")
	name = strings.ReplaceAll(name, "_", "")
	if runes := []rune(name); len(runes) > maxDisplayNameLength {
		name = string(runes[:maxDisplayNameLength])
	}
	return name
}
