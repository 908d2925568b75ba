package provision

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	calls    []string
	existing []iamtypes.Policy
	trust    string
	document string
}

func (f *fakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.calls = append(f.calls, "CreateRole")
	f.trust = aws.ToString(in.AssumeRolePolicyDocument)
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{
		RoleName: in.RoleName,
		Arn:      aws.String("arn:aws:iam::123:role/" + aws.ToString(in.RoleName)),
	}}, nil
}

func (f *fakeIAM) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.calls = append(f.calls, "Attach "+aws.ToString(in.PolicyArn))
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) CreatePolicy(_ context.Context, in *iam.CreatePolicyInput, _ ...func(*iam.Options)) (*iam.CreatePolicyOutput, error) {
	f.calls = append(f.calls, "CreatePolicy")
	f.document = aws.ToString(in.PolicyDocument)
	return &iam.CreatePolicyOutput{Policy: &iamtypes.Policy{
		PolicyName: in.PolicyName,
		Arn:        aws.String("arn:aws:iam::123:policy/" + aws.ToString(in.PolicyName)),
	}}, nil
}

func (f *fakeIAM) ListPolicies(_ context.Context, _ *iam.ListPoliciesInput, _ ...func(*iam.Options)) (*iam.ListPoliciesOutput, error) {
	return &iam.ListPoliciesOutput{Policies: f.existing}, nil
}

type fakeLambda struct {
	function   *lambda.CreateFunctionInput
	permission *lambda.AddPermissionInput
}

func (f *fakeLambda) CreateFunction(_ context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.function = in
	return &lambda.CreateFunctionOutput{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123:function:" + aws.ToString(in.FunctionName))}, nil
}

func (f *fakeLambda) AddPermission(_ context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.permission = in
	return &lambda.AddPermissionOutput{}, nil
}

type fakeS3 struct {
	in *s3.PutBucketNotificationConfigurationInput
}

func (f *fakeS3) PutBucketNotificationConfiguration(_ context.Context, in *s3.PutBucketNotificationConfigurationInput, _ ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error) {
	f.in = in
	return &s3.PutBucketNotificationConfigurationOutput{}, nil
}

// stepClock returns immediately from After and records the wait
type stepClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newProvisioner() (*Provisioner, *fakeIAM, *fakeLambda, *fakeS3, *stepClock) {
	i, l, s := &fakeIAM{}, &fakeLambda{}, &fakeS3{}
	clk := &stepClock{now: time.Unix(1714564800, 0)}
	return NewProvisioner(i, l, s, clk, nil), i, l, s, clk
}

func TestCreateRole(t *testing.T) {
	p, i, _, _, clk := newProvisioner()

	arn, err := p.CreateRole(context.Background(), "pipeline-trigger-role", "trigger", DefaultPolicyARNs)
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:iam::123:role/pipeline-trigger-role", arn)
	assert.Equal(t, []time.Duration{RolePropagationDelay}, clk.waits)
	assert.Len(t, i.calls, 1+len(DefaultPolicyARNs))
	assert.Contains(t, i.trust, `"Service":"lambda.amazonaws.com"`)
	assert.Contains(t, i.trust, `"sts:AssumeRole"`)
}

func TestEnsureSNSPolicyCreatesOnce(t *testing.T) {
	p, i, _, _, _ := newProvisioner()
	spec := SNSPolicySpec{
		Name:     "lambda-sns-trigger-policy",
		Region:   "us-east-1",
		Account:  "123",
		Function: "alarm-notifier",
		TopicARN: "arn:aws:sns:us-east-1:123:alarms",
	}

	arn, err := p.EnsureSNSPolicy(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123:policy/lambda-sns-trigger-policy", arn)

	var doc policyDocument
	require.NoError(t, json.Unmarshal([]byte(i.document), &doc))
	require.Len(t, doc.Statement, 3)
	assert.Equal(t, "arn:aws:logs:us-east-1:123:log-group:/aws/lambda/alarm-notifier", doc.Statement[0].Resource)
	assert.Equal(t, "sns:Publish", doc.Statement[2].Action)
	assert.Equal(t, spec.TopicARN, doc.Statement[2].Resource)

	i.existing = []iamtypes.Policy{{PolicyName: aws.String(spec.Name), Arn: aws.String("arn:existing")}}
	i.calls = nil
	arn, err = p.EnsureSNSPolicy(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "arn:existing", arn)
	assert.Empty(t, i.calls)
}

func TestCreateFunction(t *testing.T) {
	p, _, l, _, _ := newProvisioner()

	_, err := p.CreateFunction(context.Background(), FunctionSpec{
		Name:        "pipeline-trigger",
		RoleARN:     "arn:role",
		ZipFile:     []byte("zip"),
		Environment: map[string]string{"PIPELINE_NAME": "retrain"},
	})
	require.NoError(t, err)

	assert.Equal(t, "bootstrap", aws.ToString(l.function.Handler))
	assert.Equal(t, "provided.al2023", string(l.function.Runtime))
	assert.Equal(t, int32(10), aws.ToInt32(l.function.Timeout))
	assert.Equal(t, int32(128), aws.ToInt32(l.function.MemorySize))
	assert.True(t, l.function.Publish)
	assert.Equal(t, "retrain", l.function.Environment.Variables["PIPELINE_NAME"])
}

func TestCreateS3Trigger(t *testing.T) {
	p, _, l, s, _ := newProvisioner()

	err := p.CreateS3Trigger(context.Background(), "pipeline-trigger", "artworks", "data/", "123", "arn:function")
	require.NoError(t, err)

	assert.Equal(t, "S3-Trigger-Lambda-1714564800", aws.ToString(l.permission.StatementId))
	assert.Equal(t, "arn:aws:s3:::artworks", aws.ToString(l.permission.SourceArn))
	assert.Equal(t, "s3.amazonaws.com", aws.ToString(l.permission.Principal))

	cfg := s.in.NotificationConfiguration.LambdaFunctionConfigurations
	require.Len(t, cfg, 1)
	assert.Equal(t, []s3types.Event{"s3:ObjectCreated:Put", "s3:ObjectCreated:CompleteMultipartUpload"}, cfg[0].Events)
	rules := cfg[0].Filter.Key.FilterRules
	require.Len(t, rules, 2)
	assert.Equal(t, ".csv", aws.ToString(rules[0].Value))
	assert.Equal(t, "data/", aws.ToString(rules[1].Value))
}

func TestInstallWithTopic(t *testing.T) {
	p, i, l, s, _ := newProvisioner()

	inst, err := p.Install(context.Background(), TriggerSpec{
		RoleName:      "alarm-role",
		Function:      FunctionSpec{Name: "alarm-notifier", ZipFile: []byte("zip")},
		Region:        "us-east-1",
		Account:       "123",
		SNSTopicARN:   "arn:aws:sns:us-east-1:123:alarms",
		SNSPolicyName: "lambda-sns-trigger-policy",
	})
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:iam::123:role/alarm-role", inst.RoleARN)
	assert.Equal(t, "arn:aws:iam::123:role/alarm-role", aws.ToString(l.function.Role))
	assert.NotEmpty(t, inst.PolicyARN)
	assert.Contains(t, i.calls, "Attach arn:aws:iam::aws:policy/AmazonSNSFullAccess")
	assert.Contains(t, i.calls, "Attach "+inst.PolicyARN)
	assert.Nil(t, s.in, "no bucket means no S3 trigger")
	assert.Len(t, DefaultPolicyARNs, 3)
}

func TestZipBootstrap(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "handler")
	require.NoError(t, os.WriteFile(bin, []byte("binary"), 0755))

	data, err := ZipBootstrap(bin)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, r.File, 1)
	assert.Equal(t, "bootstrap", r.File[0].Name)
	assert.Equal(t, os.FileMode(0755), r.File[0].Mode().Perm())
}
