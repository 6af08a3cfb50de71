package observability

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway/gatewaytest"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentGatewayCountsErrors(t *testing.T) {
	fake := gatewaytest.New()
	gw := InstrumentGateway(fake)
	assert.Nil(t, InstrumentGateway(nil))

	before := testutil.ToFloat64(GatewayErrors.WithLabelValues("select", domain.TableProfiles))

	var profiles []domain.Profile
	require.NoError(t, gw.Table(domain.TableProfiles).SelectAll(context.Background(), &profiles))
	assert.Equal(t, before, testutil.ToFloat64(GatewayErrors.WithLabelValues("select", domain.TableProfiles)))

	fake.Hooks(domain.TableProfiles).FailSelect(errors.New("down"))
	assert.Error(t, gw.Table(domain.TableProfiles).SelectAll(context.Background(), &profiles))
	assert.Equal(t, before+1, testutil.ToFloat64(GatewayErrors.WithLabelValues("select", domain.TableProfiles)))

	assert.Same(t, fake.FakeAuth, gw.Auth())
}

func TestNewLoggerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")
	logger.InfoContext(WithRequestID(context.Background(), "req-1"), "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
