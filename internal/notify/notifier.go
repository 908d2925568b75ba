package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/martinlindhe/notify"
	"go.uber.org/zap"
)

// Deployment is the outcome of a deploy run as reported to people
type Deployment struct {
	Endpoint string
	Model    string
	Outcome  string
	Duration time.Duration
	Error    error
}

// Success reports whether the endpoint became ready
func (d Deployment) Success() bool {
	return d.Outcome == "Success"
}

// Publisher is the subset of the SNS client used by Notifier
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ Publisher = (*sns.Client)(nil)

// Notifier sends deployment notifications to the desktop and an SNS topic
type Notifier struct {
	desktop   bool
	publisher Publisher
	topicARN  string
	logger    *zap.Logger

	// alert is swapped in tests
	alert func(appName, title, text, iconPath string)
}

// NewNotifier creates a new notifier instance. publisher may be nil when no
// topic is configured.
func NewNotifier(desktop bool, publisher Publisher, topicARN string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		desktop:   desktop,
		publisher: publisher,
		topicARN:  topicARN,
		logger:    logger,
		alert:     notify.Notify,
	}
}

// Enabled reports whether any channel is configured
func (n *Notifier) Enabled() bool {
	return n.desktop || (n.publisher != nil && n.topicARN != "")
}

// NotifyDeployment reports a finished deployment on every configured channel.
// Each channel is attempted once; failures are logged and returned joined.
func (n *Notifier) NotifyDeployment(ctx context.Context, d Deployment) error {
	title, message := format(d)

	var errs []error
	if n.desktop {
		n.alert("sagedeploy", title, message, "")
	}

	if n.publisher != nil && n.topicARN != "" {
		_, err := n.publisher.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(n.topicARN),
			Subject:  aws.String(subject(d)),
			Message:  aws.String(message),
		})
		if err != nil {
			n.logger.Warn("Failed to publish deployment notification", zap.String("topic", n.topicARN), zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to publish to %s: %w", n.topicARN, err))
		}
	}

	return errors.Join(errs...)
}

// maxSubjectLength is the longest subject SNS accepts
const maxSubjectLength = 100

// subject builds a plain ASCII SNS subject. SNS rejects subjects that do
// not start with a letter, number or punctuation mark.
func subject(d Deployment) string {
	result := d.Outcome
	if d.Success() {
		result = "succeeded"
	}
	s := fmt.Sprintf("sagedeploy: %s deployment %s", d.Endpoint, result)
	if len(s) > maxSubjectLength {
		s = s[:maxSubjectLength]
	}
	return s
}

// format builds the desktop title and body of a deployment notification
func format(d Deployment) (string, string) {
	if d.Success() {
		title := fmt.Sprintf("✅ %s - Deployment Succeeded", d.Endpoint)
		return title, fmt.Sprintf("Model %s is in service after %s", d.Model, d.Duration.Round(time.Second))
	}

	title := fmt.Sprintf("⚠️  %s - Deployment %s", d.Endpoint, d.Outcome)
	message := fmt.Sprintf("Model %s did not become ready after %s", d.Model, d.Duration.Round(time.Second))
	if d.Error != nil {
		message = fmt.Sprintf("%s: %v", message, d.Error)
	}
	return title, message
}
