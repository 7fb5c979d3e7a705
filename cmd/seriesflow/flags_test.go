package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"testing"

	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverrideFlags_Set(t *testing.T) {
	o := overrideFlags{}
	require.NoError(t, o.Set("num_samples=55"))
	require.NoError(t, o.Set("phase_increment = 0.01"))
	require.NoError(t, o.Set("label=hello"))

	assert.Equal(t, 55, o["num_samples"])
	assert.Equal(t, 0.01, o["phase_increment"])
	assert.Equal(t, "hello", o["label"])

	assert.Error(t, o.Set("no-equals"))
	assert.Error(t, o.Set("=1"))
}

func TestOverrideFlags_MergeWinsOverConfig(t *testing.T) {
	o := overrideFlags{"frame": 20}
	merged := o.merge(map[string]any{"frame": 10, "num_samples": 5})
	assert.Equal(t, map[string]any{"frame": 20, "num_samples": 5}, merged)
}

func TestVisited(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.String("a", "x", "")
	fs.String("b", "y", "")
	require.NoError(t, fs.Parse([]string{"--b", "z"}))
	assert.Equal(t, map[string]bool{"b": true}, visited(fs))
}

func TestSessionOptions(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	cfg.ShrinkPolicy = "discard"
	opts := sessionOptions(cfg, zap.NewNop(), nil, nil, "client")

	assert.Equal(t, demux.ShrinkDiscard, opts.ShrinkPolicy)
	assert.Equal(t, cfg.RepeatedFieldCount, opts.RepeatedFieldCount)
	assert.Nil(t, opts.Metrics, "a nil collector must not become a non-nil interface")
	assert.Nil(t, opts.BufferObserver)

	opts = sessionOptions(cfg, zap.NewNop(), nil, newTestCollector(), "client")
	assert.NotNil(t, opts.Metrics)
	assert.NotNil(t, opts.BufferObserver)
}

func TestListGenerators(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listGenerators(&out, generator.DefaultRegistry(), ""))
	assert.Contains(t, out.String(), "HANDLE")
	assert.Contains(t, out.String(), generator.HandleIQMatrix)

	out.Reset()
	require.NoError(t, listGenerators(&out, generator.DefaultRegistry(), generator.HandleCexp))
	var spec struct {
		Generator string `json:"generator"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &spec))
	assert.Equal(t, generator.HandleCexp, spec.Generator)

	assert.Error(t, listGenerators(&out, generator.DefaultRegistry(), "square"))
}

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger = initLogger(config.LogConfig{Level: "nonsense", Format: "json"})
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}
