package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantClock returns from every wait immediately
type instantClock struct {
	now time.Time
}

func (c *instantClock) Now() time.Time { return c.now }

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestAwaitReadySurvivesDialTimeout(t *testing.T) {
	// Dial timeouts match context.DeadlineExceeded even when the caller's
	// context is still live.
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}
	require.ErrorIs(t, dialErr, context.DeadlineExceeded)
	assert.Equal(t, KindTransient, Classify(dialErr))

	calls := 0
	api := &fakeAPI{describe: func(name string) (*sagemaker.DescribeEndpointOutput, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("describe endpoint: %w", dialErr)
		}
		return &sagemaker.DescribeEndpointOutput{
			EndpointName:   aws.String(name),
			EndpointStatus: types.EndpointStatusInService,
		}, nil
	}}

	clk := &instantClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	r := monitor.NewReadiness(NewClient(api, nil), clk)
	outcome, err := r.AwaitReady(context.Background(), "recs", clk.Now().Add(monitor.DefaultTimeout))

	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeSuccess, outcome)
	assert.Equal(t, 2, calls)
}

func TestCancelledFetchIsTerminal(t *testing.T) {
	api := &fakeAPI{describe: func(string) (*sagemaker.DescribeEndpointOutput, error) {
		return nil, context.Canceled
	}}

	_, _, err := NewClient(api, nil).EndpointStatus(context.Background(), "recs")
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.True(t, e.Terminal())
}
