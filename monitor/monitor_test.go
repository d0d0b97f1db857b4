package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/model"
)

func TestShouldDisableModel_RespectsFlag(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	defer func() { config.AutomaticDisableModelEnabled = original }()

	err := errors.Wrap(&smithy.GenericAPIError{
		Code:    "AccessDeniedException",
		Message: "You don't have access to the model with the specified model ID.",
	}, "invoke model")

	config.AutomaticDisableModelEnabled = false
	require.False(t, ShouldDisableModel(err))

	config.AutomaticDisableModelEnabled = true
	require.True(t, ShouldDisableModel(err))
	require.False(t, ShouldDisableModel(errors.New("connection reset")))
	require.False(t, ShouldDisableModel(&smithy.GenericAPIError{Code: "ThrottlingException"}))
	require.True(t, ShouldDisableModel(&smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: "The provided model identifier is invalid.",
	}))
}

func TestHealth(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	defer func() { config.AutomaticDisableModelEnabled = original }()
	config.AutomaticDisableModelEnabled = true

	h := NewHealth(4, 0.5, time.Minute)
	fail := errors.New("boom")

	h.Emit("m", nil)
	h.Emit("m", fail)
	h.Emit("m", fail)
	_, off := h.Disabled("m")
	require.False(t, off, "queue not full yet")

	h.Emit("m", fail)
	reason, off := h.Disabled("m")
	require.True(t, off)
	require.Equal(t, "low success rate", reason)
	_, ok := h.Allow("m")
	require.False(t, ok)

	h.Emit("x", &smithy.GenericAPIError{Code: "UnrecognizedClientException"})
	_, off = h.Disabled("x")
	require.True(t, off)
	h.Enable("x")
	_, ok = h.Allow("x")
	require.True(t, ok)
}

func TestHealthTransientErrors(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	defer func() { config.AutomaticDisableModelEnabled = original }()
	config.AutomaticDisableModelEnabled = true

	h := NewHealth(3, 0.5, time.Minute)
	throttled := errors.Wrap(&smithy.GenericAPIError{Code: "ThrottlingException"}, "invoke model")
	for range 10 {
		h.Emit("m", throttled)
		h.Emit("m", context.DeadlineExceeded)
	}
	_, off := h.Disabled("m")
	require.False(t, off)
	require.True(t, IsTransient(throttled))
	require.False(t, IsTransient(errors.New("boom")))
	require.False(t, IsTransient(nil))
}

func TestHealthTrialRequest(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	defer func() { config.AutomaticDisableModelEnabled = original }()
	config.AutomaticDisableModelEnabled = true

	now := time.Unix(1_700_000_000, 0)
	h := NewHealth(2, 0.5, time.Minute)
	h.now = func() time.Time { return now }
	fail := errors.New("boom")

	h.Emit("m", fail)
	h.Emit("m", fail)
	_, ok := h.Allow("m")
	require.False(t, ok, "still cooling down")

	now = now.Add(time.Minute)
	_, ok = h.Allow("m")
	require.True(t, ok, "trial after cooldown")
	_, ok = h.Allow("m")
	require.False(t, ok, "only one trial at a time")

	// a failed trial restarts the cooldown
	h.Emit("m", fail)
	_, ok = h.Allow("m")
	require.False(t, ok)

	now = now.Add(time.Minute)
	_, ok = h.Allow("m")
	require.True(t, ok)
	h.Emit("m", nil)
	_, off := h.Disabled("m")
	require.False(t, off)
	_, ok = h.Allow("m")
	require.True(t, ok)
}

func TestSuccessRate(t *testing.T) {
	require.Equal(t, 1.0, SuccessRate(nil))
	require.Equal(t, 0.25, SuccessRate([]bool{true, false, false, false}))
}

func TestMetrics(t *testing.T) {
	InitPrometheusMonitoring()
	InitPrometheusMonitoring()

	before := testutil.ToFloat64(modelInvocations.WithLabelValues("test-model", "titan", OutcomeError))
	RecordInvocation("test-model", "titan", errors.New("x"), 10*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(modelInvocations.WithLabelValues("test-model", "titan", OutcomeError)))

	RecordTokenUsage("test-model", model.NewTokenUsage(3, 4))
	RecordTokenUsage("test-model", nil)
	require.Equal(t, 4.0, testutil.ToFloat64(modelTokens.WithLabelValues("test-model", "output")))

	RecordParseFailure("int16", "out of range")
	require.Equal(t, 1.0, testutil.ToFloat64(parseFailures.WithLabelValues("int16", "out of range")))

	RecordHTTPRequest("POST", "/v1/parse", 422, time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/v1/parse", "422")))
}
