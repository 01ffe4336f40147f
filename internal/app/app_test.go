package app

import (
	"context"
	"testing"
	"time"

	"github.com/mev-engine/tx-simulator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		EVM: config.EVMConfig{
			ForkURL:        "http://127.0.0.1:1",
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			RequestTimeout: 50 * time.Millisecond,
		},
		Runtime: config.RuntimeConfig{
			Endpoint:       "ws://127.0.0.1:1",
			NativeSymbol:   "UNIT",
			NativeDecimals: 12,
			RequestTimeout: 50 * time.Millisecond,
		},
	}
}

func TestNewApplicationSurvivesUnreachableBackends(t *testing.T) {
	a := NewApplication(testConfig())
	require.NotNil(t, a)
	assert.NotNil(t, a.evmBackend)
	assert.NotNil(t, a.runtimeBackend)
	assert.NotNil(t, a.server)
}

func TestApplicationStartStop(t *testing.T) {
	a := NewApplication(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	require.NoError(t, a.Stop(context.Background()))
}
