package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	pipeline, displayName, description string
	err                                error
}

func (f *fakeStarter) StartPipelineExecution(_ context.Context, pipeline, displayName, description string) (string, error) {
	f.pipeline, f.displayName, f.description = pipeline, displayName, description
	if f.err != nil {
		return "", f.err
	}
	return "arn:aws:sagemaker:us-east-1:123:pipeline/retrain/execution/abc", nil
}

type fakeMailer struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeMailer) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

func s3Event(bucket, key string) events.S3Event {
	return events.S3Event{Records: []events.S3EventRecord{{
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: bucket},
			Object: events.S3Object{Key: key},
		},
	}}}
}

func TestHandleStartsPipeline(t *testing.T) {
	starter := &fakeStarter{}
	h := NewHandler(Args{PipelineName: "retrain"}, starter, nil, nil)

	resp, err := h.Handle(context.Background(), s3Event("artworks", "data/new_artworks_2024.csv"))
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Msg.PipelineExecutionArn, "execution/abc")
	assert.Equal(t, "retrain", starter.pipeline)
	assert.Equal(t, "newartworks2024", starter.displayName)
	assert.Equal(t, "data/new_artworks_2024.csv", starter.description)
}

func TestHandleDecodesKey(t *testing.T) {
	starter := &fakeStarter{}
	h := NewHandler(Args{PipelineName: "retrain"}, starter, nil, nil)

	_, err := h.Handle(context.Background(), s3Event("artworks", "data/spring+sale%282024%29.csv"))
	require.NoError(t, err)
	assert.Equal(t, "data/spring sale(2024).csv", starter.description)
}

func TestHandleRejectsEmptyEvent(t *testing.T) {
	h := NewHandler(Args{PipelineName: "retrain"}, &fakeStarter{}, nil, nil)

	_, err := h.Handle(context.Background(), events.S3Event{})
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestHandleStartFailure(t *testing.T) {
	h := NewHandler(Args{PipelineName: "retrain"}, &fakeStarter{err: errors.New("no such pipeline")}, nil, nil)

	_, err := h.Handle(context.Background(), s3Event("artworks", "data/a.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such pipeline")
}

func TestHandleSendsEmail(t *testing.T) {
	mailer := &fakeMailer{}
	args := Args{PipelineName: "retrain", EmailSource: "ml@example.com", EmailRecipient: "team@example.com"}
	h := NewHandler(args, &fakeStarter{}, mailer, nil)

	_, err := h.Handle(context.Background(), s3Event("artworks", "data/a.csv"))
	require.NoError(t, err)

	require.NotNil(t, mailer.in)
	assert.Equal(t, "ml@example.com", aws.ToString(mailer.in.FromEmailAddress))
	assert.Equal(t, []string{"team@example.com"}, mailer.in.Destination.ToAddresses)
}

func TestHandleEmailFailureIsNotFatal(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("sandbox")}
	args := Args{PipelineName: "retrain", EmailSource: "ml@example.com", EmailRecipient: "team@example.com"}

	resp, err := NewHandler(args, &fakeStarter{}, mailer, nil).Handle(context.Background(), s3Event("b", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "artworks", DisplayName("artworks.csv"))
	assert.Equal(t, "ab", DisplayName("x/y/a_b.csv"))
	assert.Len(t, DisplayName(strings.Repeat("a", 100)+".csv"), 82)
	assert.Equal(t, "reportbackup", DisplayName("uploads/report.csv_backup"))

	long := DisplayName(strings.Repeat("é", 100) + ".csv")
	assert.Equal(t, 82, utf8.RuneCountInString(long))
	assert.True(t, utf8.ValidString(long))
}

func TestParseArgs(t *testing.T) {
	t.Setenv("PIPELINE_NAME", "retrain")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("EMAIL_SOURCE", "")
	t.Setenv("EMAIL_RECIPIENT", "")

	args, err := ParseArgs()
	require.NoError(t, err)
	assert.Equal(t, "retrain", args.PipelineName)
	assert.Equal(t, "eu-west-1", args.Region)
}
