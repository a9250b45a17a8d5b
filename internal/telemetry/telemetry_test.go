// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: ExporterGRPC})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterHTTP,
		Endpoint:     "localhost:4318",
		SamplingRate: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.tp)

	_, span := Tracer("test").Start(context.Background(), "sampled")
	span.End()

	// Nothing listens on the endpoint; shutdown must still return within its timeout.
	_ = provider.Shutdown(context.Background())
	otel.SetTracerProvider(noop.NewTracerProvider())
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTunerAttributes(t *testing.T) {
	attrs := TunerAttributes("BBC One", "", 1, 0)
	assert.Contains(t, attrs, attribute.String(TunerChannelKey, "BBC One"))
	assert.Contains(t, attrs, attribute.Int(TunerAdapterKey, 1))
	for _, a := range attrs {
		assert.NotEqual(t, attribute.Key(TunerProgramIDKey), a.Key, "empty program id omitted")
	}
}

func TestRecoveryAttributes(t *testing.T) {
	attrs := RecoveryAttributes("bridge_exit", "reconnect", 1700)
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(RecoverySourceKey, "bridge_exit"),
		attribute.String(RecoveryActionKey, "reconnect"),
		attribute.Int64(RecoveryDelayMSKey, 1700),
	}, attrs)

	assert.Len(t, RecoveryAttributes("player_eos", "escalate", 0), 2)
}

func TestSessionAndBridgeAttributes(t *testing.T) {
	assert.Contains(t, SessionAttributes("abc", true, 2), attribute.Int(SessionAttemptKey, 2))
	assert.Contains(t, BridgeAttributes("resilient", "/dev/dvb/adapter0/dvr0", 23000), attribute.String(BridgeModeKey, "resilient"))
	assert.Contains(t, ErrorAttributes(nil, "timeout"), attribute.Bool(ErrorKey, true))
}
