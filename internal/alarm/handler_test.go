package alarm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detail = `{
  "alarmName": "recs-endpoint-5xx",
  "configuration": {"description": "Endpoint returns server errors"},
  "previousState": {"value": "OK"},
  "state": {"value": "ALARM", "reason": "Threshold Crossed: 1 datapoint [3.0] was greater than the threshold (0.0)."}
}`

type fakePublisher struct {
	in *sns.PublishInput
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestParseStateChange(t *testing.T) {
	sc, err := ParseStateChange([]byte(detail))
	require.NoError(t, err)

	assert.Equal(t, "recs-endpoint-5xx", sc.Name)
	assert.Equal(t, "Endpoint returns server errors", sc.Description)
	assert.Equal(t, "OK", sc.OldState)
	assert.Equal(t, "ALARM", sc.NewState)
	assert.Contains(t, sc.Reason, "Threshold Crossed")
}

func TestParseStateChangeMissingName(t *testing.T) {
	_, err := ParseStateChange([]byte(`{"state":{"value":"ALARM"}}`))
	assert.ErrorIs(t, err, ErrMissingAlarmName)
}

func TestHandlePublishes(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHandler(Args{SNSTopicARN: "arn:aws:sns:us-east-1:123:alarms"}, pub, nil)

	err := h.Handle(context.Background(), events.CloudWatchEvent{
		DetailType: "CloudWatch Alarm State Change",
		Detail:     json.RawMessage(detail),
	})
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:sns:us-east-1:123:alarms", aws.ToString(pub.in.TopicArn))
	assert.Equal(t, "CloudWatch Alarm: recs-endpoint-5xx", aws.ToString(pub.in.Subject))
	assert.Equal(t,
		"Alarm Name: recs-endpoint-5xx\n\n"+
			"Alarm Description: Endpoint returns server errors\n\n"+
			"Old State: OK\n\n"+
			"New State: ALARM\n\n"+
			"Reason: Threshold Crossed: 1 datapoint [3.0] was greater than the threshold (0.0).",
		aws.ToString(pub.in.Message))
}
