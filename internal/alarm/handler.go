package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrMissingAlarmName is returned when the event detail names no alarm
var ErrMissingAlarmName = errors.New("alarm state change has no alarmName")

// Args is the handler configuration, read from the environment
type Args struct {
	Region      string `arg:"--region,env:AWS_REGION" help:"AWS region"`
	SNSTopicARN string `arg:"--sns-topic-arn,env:SNS_TOPIC_ARN,required" help:"topic alarm notifications are published to"`
}

// ParseArgs reads Args from the environment
func ParseArgs() (Args, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return args, err
	}
	if err := p.Parse(nil); err != nil {
		return args, fmt.Errorf("failed to read alarm notifier configuration: %w", err)
	}
	return args, nil
}

// Publisher is the subset of the SNS client used by Handler
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ Publisher = (*sns.Client)(nil)

// StateChange is the part of an alarm state change event that gets reported
type StateChange struct {
	Name        string
	Description string
	OldState    string
	NewState    string
	Reason      string
}

// ParseStateChange extracts the alarm fields from an event detail document
func ParseStateChange(detail []byte) (StateChange, error) {
	fields := gjson.GetManyBytes(detail,
		"alarmName",
		"configuration.description",
		"previousState.value",
		"state.value",
		"state.reason",
	)

	sc := StateChange{
		Name:        fields[0].String(),
		Description: fields[1].String(),
		OldState:    fields[2].String(),
		NewState:    fields[3].String(),
		Reason:      fields[4].String(),
	}
	if sc.Name == "" {
		return sc, ErrMissingAlarmName
	}
	return sc, nil
}

// Subject returns the notification subject
func (sc StateChange) Subject() string {
	return "CloudWatch Alarm: " + sc.Name
}

// Message returns the notification body
func (sc StateChange) Message() string {
	return strings.Join([]string{
		"Alarm Name: " + sc.Name,
		"Alarm Description: " + sc.Description,
		"Old State: " + sc.OldState,
		"New State: " + sc.NewState,
		"Reason: " + sc.Reason,
	}, "\n\n")
}

// Handler publishes alarm state changes to a topic
type Handler struct {
	topicARN  string
	publisher Publisher
	logger    *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(args Args, publisher Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{topicARN: args.SNSTopicARN, publisher: publisher, logger: logger}
}

// Handle publishes one notification for an alarm state change event
func (h *Handler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	sc, err := ParseStateChange(event.Detail)
	if err != nil {
		return err
	}

	out, err := h.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.topicARN),
		Subject:  aws.String(sc.Subject()),
		Message:  aws.String(sc.Message()),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alarm %s: %w", sc.Name, err)
	}

	h.logger.Info("Alarm notification published",
		zap.String("alarm", sc.Name),
		zap.String("state", sc.NewState),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
