package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	in  *sns.PublishInput
	err error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("1")}, nil
}

func TestNotifyDeploymentSuccess(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(true, pub, "arn:aws:sns:us-east-1:123:deployments", nil)

	var titles []string
	n.alert = func(_, title, _, _ string) { titles = append(titles, title) }

	err := n.NotifyDeployment(context.Background(), Deployment{
		Endpoint: "recs",
		Model:    "recs-2024-05-01-12-00",
		Outcome:  "Success",
		Duration: 7 * time.Minute,
	})
	require.NoError(t, err)

	require.Len(t, titles, 1)
	assert.Contains(t, titles[0], "Deployment Succeeded")
	assert.Equal(t, "sagedeploy: recs deployment succeeded", aws.ToString(pub.in.Subject))
	assert.Contains(t, aws.ToString(pub.in.Message), "7m0s")
}

func TestNotifyDeploymentPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("throttled")}
	n := NewNotifier(false, pub, "arn:topic", nil)

	err := n.NotifyDeployment(context.Background(), Deployment{
		Endpoint: "recs",
		Outcome:  "TimedOut",
		Error:    errors.New("deadline passed"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Contains(t, aws.ToString(pub.in.Message), "deadline passed")
}

func TestNotifierEnabled(t *testing.T) {
	assert.False(t, NewNotifier(false, nil, "", nil).Enabled())
	assert.False(t, NewNotifier(false, &fakePublisher{}, "", nil).Enabled())
	assert.True(t, NewNotifier(true, nil, "", nil).Enabled())
	assert.True(t, NewNotifier(false, &fakePublisher{}, "arn:topic", nil).Enabled())
}

func TestPublishedSubjectIsPlain(t *testing.T) {
	for _, outcome := range []string{"Success", "Failed", "TimedOut"} {
		pub := &fakePublisher{}
		n := NewNotifier(false, pub, "arn:topic", nil)

		err := n.NotifyDeployment(context.Background(), Deployment{
			Endpoint: strings.Repeat("e", 63),
			Outcome:  outcome,
		})
		require.NoError(t, err)

		got := aws.ToString(pub.in.Subject)
		require.NotEmpty(t, got)
		first := []rune(got)[0]
		assert.True(t, unicode.IsLetter(first) || unicode.IsNumber(first) || unicode.IsPunct(first), outcome)
		assert.LessOrEqual(t, len(got), maxSubjectLength, outcome)
		for _, r := range got {
			assert.Less(t, r, rune(128), "subject %q must be ASCII", got)
		}
	}
}

func TestSubjectTruncated(t *testing.T) {
	got := subject(Deployment{Endpoint: strings.Repeat("x", 200), Outcome: "Failed"})
	assert.Len(t, got, maxSubjectLength)
	assert.True(t, strings.HasPrefix(got, "sagedeploy: "))
}
