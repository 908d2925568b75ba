package cmd

import (
	"testing"

	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/inference"
	"github.com/juststeveking/sagedeploy/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegion(t *testing.T) {
	cfg := &config.Config{Region: "eu-west-1"}

	t.Setenv("AWS_REGION", "")
	region = ""
	assert.Equal(t, "eu-west-1", resolveRegion(cfg))

	t.Setenv("AWS_REGION", "us-east-2")
	assert.Equal(t, "us-east-2", resolveRegion(cfg))

	region = "ap-south-1"
	t.Cleanup(func() { region = "" })
	assert.Equal(t, "ap-south-1", resolveRegion(cfg))
}

func TestOutcomeError(t *testing.T) {
	assert.NoError(t, outcomeError("a", monitor.OutcomeSuccess, ""))

	err := outcomeError("a", monitor.OutcomeFailed, "image not found")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed")
	assert.Contains(t, err.Error(), "image not found")

	assert.EqualError(t, outcomeError("a", monitor.OutcomeTimedOut, ""), "endpoint a finished TimedOut")
}

func TestBindPort(t *testing.T) {
	t.Setenv("SAGEMAKER_BIND_TO_PORT", "")
	port, err := bindPort()
	require.NoError(t, err)
	assert.Equal(t, inference.DefaultPort, port)

	t.Setenv("SAGEMAKER_BIND_TO_PORT", "9090")
	port, err = bindPort()
	require.NoError(t, err)
	assert.Equal(t, 9090, port)

	t.Setenv("SAGEMAKER_BIND_TO_PORT", "http")
	_, err = bindPort()
	assert.Error(t, err)
}

func TestOverrideEndpointOnlyChangedFlags(t *testing.T) {
	require.NoError(t, deployCmd.Flags().Set("instance-count", "3"))
	t.Cleanup(func() {
		deployInstanceCount = 0
		deployCmd.Flags().Lookup("instance-count").Changed = false
	})

	e := overrideEndpoint(deployCmd, config.Endpoint{
		Name:          "recommender",
		Image:         "image:1",
		InstanceCount: 1,
	})

	assert.Equal(t, 3, e.InstanceCount)
	assert.Equal(t, "image:1", e.Image)
}
