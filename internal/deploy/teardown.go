package deploy

import (
	"context"

	"github.com/juststeveking/sagedeploy/internal/monitor"
	"go.uber.org/zap"
)

const deleteWait = monitor.DefaultTimeout

// Teardown deletes an endpoint and its configuration, waiting for the
// endpoint to disappear first. When deleteModels is set the models served
// by the configuration are deleted too.
func (d *Deployer) Teardown(ctx context.Context, endpoint string, deleteModels bool) error {
	desc, err := d.cp.DescribeEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	logger := d.logger.With(zap.String("endpoint", endpoint), zap.String("endpoint_config", desc.ConfigName))

	var models []string
	if deleteModels {
		if models, err = d.cp.EndpointConfigModels(ctx, desc.ConfigName); err != nil {
			return err
		}
	}

	if err := d.cp.DeleteEndpoint(ctx, endpoint); err != nil {
		return err
	}
	if err := d.cp.WaitEndpointDeleted(ctx, endpoint, deleteWait); err != nil {
		return err
	}
	if err := d.cp.DeleteEndpointConfig(ctx, desc.ConfigName); err != nil {
		return err
	}

	for _, m := range models {
		if err := d.cp.DeleteModel(ctx, m); err != nil {
			return err
		}
	}

	logger.Info("Endpoint torn down", zap.Strings("models", models))
	return nil
}
