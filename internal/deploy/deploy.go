package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/history"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/juststeveking/sagedeploy/internal/notify"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"github.com/raulk/clock"
	"go.uber.org/zap"
)

// ControlPlane is the subset of sagemaker.Client the deployer drives
type ControlPlane interface {
	CreateModel(ctx context.Context, spec sagemaker.ModelSpec) (string, error)
	DeleteModel(ctx context.Context, name string) error
	EndpointConfigExists(ctx context.Context, name string) (bool, error)
	CreateEndpointConfig(ctx context.Context, spec sagemaker.EndpointConfigSpec) (string, error)
	EndpointConfigModels(ctx context.Context, name string) ([]string, error)
	DeleteEndpointConfig(ctx context.Context, name string) error
	EndpointExists(ctx context.Context, name string) (bool, error)
	CreateEndpoint(ctx context.Context, name, configName string) (string, error)
	UpdateEndpoint(ctx context.Context, name, configName string) (string, error)
	DescribeEndpoint(ctx context.Context, name string) (sagemaker.EndpointDescription, error)
	DeleteEndpoint(ctx context.Context, name string) error
	WaitEndpointDeleted(ctx context.Context, name string, maxWait time.Duration) error
}

var _ ControlPlane = (*sagemaker.Client)(nil)

// Awaiter waits for an endpoint to become ready
type Awaiter interface {
	AwaitReady(ctx context.Context, name string, deadline time.Time) (monitor.Outcome, error)
}

// Recorder persists deployment runs
type Recorder interface {
	Record(d history.Deployment) (history.Deployment, error)
}

// Notifier reports finished deployments
type Notifier interface {
	NotifyDeployment(ctx context.Context, d notify.Deployment) error
}

// Request describes one deployment
type Request struct {
	EndpointName  string
	ModelName     string
	ModelData     string
	Image         string
	RoleARN       string
	InstanceType  string
	InstanceCount int
	VariantName   string
	EntryPoint    string

	// Recreate deletes an existing endpoint instead of updating it in place
	Recreate bool
	Timeout  time.Duration
	ARNOut   string
}

// RequestFromEndpoint builds a request from a tracked endpoint
func RequestFromEndpoint(e config.Endpoint) Request {
	e = e.WithDefaults()
	return Request{
		EndpointName:  e.Name,
		ModelName:     e.ModelName,
		ModelData:     config.ResolveEnv(e.ModelData),
		Image:         config.ResolveEnv(e.Image),
		RoleARN:       config.ResolveEnv(e.RoleARN),
		InstanceType:  e.InstanceType,
		InstanceCount: e.InstanceCount,
		VariantName:   e.VariantName,
		EntryPoint:    e.EntryPoint,
	}
}

// Validate checks the fields every deployment needs
func (r Request) Validate() error {
	var errs []error
	if r.EndpointName == "" {
		errs = append(errs, errors.New("endpoint name is required"))
	}
	if r.ModelData == "" {
		errs = append(errs, errors.New("model data location is required"))
	}
	if r.Image == "" {
		errs = append(errs, errors.New("inference image is required"))
	}
	if r.RoleARN == "" {
		errs = append(errs, errors.New("execution role ARN is required"))
	}
	return errors.Join(errs...)
}

// Report is the result of one Deploy call
type Report struct {
	RunID          string
	Endpoint       string
	Model          string
	EndpointConfig string
	ModelARN       string
	EndpointARN    string
	Outcome        monitor.Outcome
	FailureReason  string
	StartedAt      time.Time
	EndedAt        time.Time
	Err            error
}

// Duration returns how long the deployment took
func (r Report) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Deployer creates models, endpoint configurations and endpoints
type Deployer struct {
	cp       ControlPlane
	awaiter  Awaiter
	clock    clock.Clock
	logger   *zap.Logger
	history  Recorder
	notifier Notifier
}

// Option configures a Deployer
type Option func(*Deployer)

// WithHistory records every run
func WithHistory(r Recorder) Option {
	return func(d *Deployer) { d.history = r }
}

// WithNotifier reports every finished run
func WithNotifier(n Notifier) Option {
	return func(d *Deployer) { d.notifier = n }
}

// New creates a new deployer
func New(cp ControlPlane, awaiter Awaiter, clk clock.Clock, logger *zap.Logger, opts ...Option) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deployer{cp: cp, awaiter: awaiter, clock: clk, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy registers a new model version, points the endpoint at it and waits
// until it is ready. A Failed or TimedOut outcome is reported in the Report,
// not as an error; the error is non-nil only when a control plane call failed.
func (d *Deployer) Deploy(ctx context.Context, req Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid deployment request: %w", err)
	}
	if req.Timeout <= 0 {
		req.Timeout = monitor.DefaultTimeout
	}

	started := d.clock.Now().UTC()
	modelName := ModelName(req.ModelName, started)
	report := Report{
		RunID:          uuid.NewString(),
		Endpoint:       req.EndpointName,
		Model:          modelName,
		EndpointConfig: EndpointConfigName(modelName),
		Outcome:        monitor.OutcomeFailed,
		StartedAt:      started,
	}
	logger := d.logger.With(zap.String("run_id", report.RunID), zap.String("endpoint", req.EndpointName))

	err := d.run(ctx, logger, req, &report)
	report.EndedAt = d.clock.Now().UTC()
	report.Err = err
	if err != nil {
		logger.Error("Deployment failed", zap.Error(err))
	} else {
		logger.Info("Deployment finished",
			zap.String("outcome", string(report.Outcome)),
			zap.Duration("duration", report.Duration()))
	}

	d.finish(ctx, logger, report)
	return report, err
}

func (d *Deployer) run(ctx context.Context, logger *zap.Logger, req Request, report *Report) error {
	modelARN, err := d.cp.CreateModel(ctx, sagemaker.ModelSpec{
		Name:       report.Model,
		Image:      req.Image,
		ModelData:  req.ModelData,
		RoleARN:    req.RoleARN,
		EntryPoint: req.EntryPoint,
	})
	if err != nil {
		return err
	}
	report.ModelARN = modelARN

	exists, err := d.cp.EndpointConfigExists(ctx, report.EndpointConfig)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("Endpoint config already exists", zap.String("endpoint_config", report.EndpointConfig))
	} else {
		_, err := d.cp.CreateEndpointConfig(ctx, sagemaker.EndpointConfigSpec{
			Name:          report.EndpointConfig,
			ModelName:     report.Model,
			VariantName:   req.VariantName,
			InstanceType:  req.InstanceType,
			InstanceCount: req.InstanceCount,
		})
		if err != nil {
			return err
		}
	}

	arn, err := d.rollout(ctx, logger, req, report.EndpointConfig)
	if err != nil {
		return err
	}
	report.EndpointARN = arn

	deadline := d.clock.Now().Add(req.Timeout)
	outcome, err := d.awaiter.AwaitReady(ctx, req.EndpointName, deadline)
	report.Outcome = outcome
	if err != nil {
		return err
	}

	if outcome == monitor.OutcomeFailed {
		if desc, err := d.cp.DescribeEndpoint(ctx, req.EndpointName); err == nil {
			report.FailureReason = desc.FailureReason
		}
	}

	if outcome.OK() && req.ARNOut != "" {
		if err := writeARN(req.ARNOut, report.EndpointARN); err != nil {
			return err
		}
		logger.Info("Endpoint ARN written", zap.String("path", req.ARNOut))
	}
	return nil
}

// rollout creates the endpoint or moves it to the new configuration
func (d *Deployer) rollout(ctx context.Context, logger *zap.Logger, req Request, configName string) (string, error) {
	exists, err := d.cp.EndpointExists(ctx, req.EndpointName)
	if err != nil {
		return "", err
	}

	switch {
	case exists && req.Recreate:
		logger.Info("Deleting existing endpoint before recreating it")
		if err := d.cp.DeleteEndpoint(ctx, req.EndpointName); err != nil {
			return "", err
		}
		if err := d.cp.WaitEndpointDeleted(ctx, req.EndpointName, req.Timeout); err != nil {
			return "", err
		}
		return d.cp.CreateEndpoint(ctx, req.EndpointName, configName)
	case exists:
		return d.cp.UpdateEndpoint(ctx, req.EndpointName, configName)
	default:
		return d.cp.CreateEndpoint(ctx, req.EndpointName, configName)
	}
}

// finish records and reports a run. Both are best-effort.
func (d *Deployer) finish(ctx context.Context, logger *zap.Logger, report Report) {
	if d.history != nil {
		rec := history.Deployment{
			Endpoint:       report.Endpoint,
			Model:          report.Model,
			EndpointConfig: report.EndpointConfig,
			ModelARN:       report.ModelARN,
			EndpointARN:    report.EndpointARN,
			Outcome:        string(report.Outcome),
			StartedAt:      report.StartedAt,
			EndedAt:        report.EndedAt,
		}
		if report.Err != nil {
			rec.Error = report.Err.Error()
		} else if report.FailureReason != "" {
			rec.Error = report.FailureReason
		}
		if _, err := d.history.Record(rec); err != nil {
			logger.Warn("Failed to record deployment", zap.Error(err))
		}
	}

	if d.notifier != nil {
		n := notify.Deployment{
			Endpoint: report.Endpoint,
			Model:    report.Model,
			Outcome:  string(report.Outcome),
			Duration: report.Duration(),
			Error:    report.Err,
		}
		if n.Error == nil && report.FailureReason != "" {
			n.Error = errors.New(report.FailureReason)
		}
		if err := d.notifier.NotifyDeployment(ctx, n); err != nil {
			logger.Warn("Failed to send deployment notification", zap.Error(err))
		}
	}
}

func writeARN(path, arn string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(arn), 0644); err != nil {
		return fmt.Errorf("failed to write endpoint ARN: %w", err)
	}
	return nil
}
