package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/aws/smithy-go"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/logger"
)

// ShouldDisableModel reports whether err means the model cannot serve any request
// with the current account, region or model id.
func ShouldDisableModel(err error) bool {
	if !config.AutomaticDisableModelEnabled || err == nil {
		return false
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "UnrecognizedClientException", "ResourceNotFoundException":
		return true
	case "ValidationException":
		msg := strings.ToLower(apiErr.ErrorMessage())
		return strings.Contains(msg, "model identifier is invalid") ||
			strings.Contains(msg, "on-demand throughput isn't supported")
	}
	return false
}

// IsTransient reports whether err says nothing about the model's health:
// throttling, quota and timeouts pass on their own.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException",
			"ModelNotReadyException", "ServiceUnavailableException":
			return true
		}
	}
	return false
}

type disabledModel struct {
	reason string
	since  time.Time
	// trial is set while the one request let through after the cooldown is in flight
	trial bool
}

// Health tracks the recent success rate of every model.
//
// Once the cooldown of a disabled model has passed, Allow lets a single trial
// request through. A successful trial re-enables the model.
type Health struct {
	mu        sync.Mutex
	size      int
	threshold float64
	cooldown  time.Duration
	now       func() time.Time
	results   map[string][]bool
	disabled  map[string]*disabledModel
}

// NewHealth creates a tracker keeping the last size results per model.
func NewHealth(size int, threshold float64, cooldown time.Duration) *Health {
	if size <= 0 {
		size = 1
	}
	return &Health{
		size:      size,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		results:   map[string][]bool{},
		disabled:  map[string]*disabledModel{},
	}
}

var (
	defaultHealth     *Health
	defaultHealthOnce sync.Once
)

// DefaultHealth is the process wide tracker configured from common/config.
func DefaultHealth() *Health {
	defaultHealthOnce.Do(func() {
		defaultHealth = NewHealth(config.MetricQueueSize, config.MetricSuccessRateThreshold,
			config.ModelDisableCooldown)
	})
	return defaultHealth
}

// Allow reports whether a request to modelID may be sent. For a disabled
// model it returns the reason and false, except for the trial request once
// the cooldown has passed.
func (h *Health) Allow(modelID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, off := h.disabled[modelID]
	if !off {
		return "", true
	}
	if d.trial || h.now().Sub(d.since) < h.cooldown {
		return d.reason, false
	}
	d.trial = true
	logger.Logger.Info("sending trial request to disabled model",
		zap.String("model", modelID), zap.String("reason", d.reason))
	return "", true
}

// Emit records the outcome of one invocation.
// A failure matching ShouldDisableModel disables the model at once.
// Transient failures are left out of the success rate.
func (h *Health) Emit(modelID string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d, off := h.disabled[modelID]; off {
		h.emitDisabledLocked(modelID, d, err)
		return
	}
	if IsTransient(err) {
		return
	}
	if ShouldDisableModel(err) {
		h.disableLocked(modelID, err.Error())
		return
	}

	q := append(h.results[modelID], err == nil)
	if len(q) > h.size {
		q = q[len(q)-h.size:]
	}
	h.results[modelID] = q
	if len(q) < h.size {
		return
	}

	if rate := SuccessRate(q); rate < h.threshold && config.AutomaticDisableModelEnabled {
		h.disableLocked(modelID, "low success rate")
	}
}

func (h *Health) emitDisabledLocked(modelID string, d *disabledModel, err error) {
	switch {
	case err == nil:
		delete(h.disabled, modelID)
		delete(h.results, modelID)
		logger.Logger.Info("model has been enabled", zap.String("model", modelID))
	case IsTransient(err):
		// inconclusive, the next request after the cooldown tries again
		d.trial = false
		d.since = h.now()
	default:
		d.trial = false
		d.since = h.now()
		logger.Logger.Debug("trial request failed", zap.String("model", modelID), zap.Error(err))
	}
}

func (h *Health) disableLocked(modelID, reason string) {
	if _, ok := h.disabled[modelID]; ok {
		return
	}
	h.disabled[modelID] = &disabledModel{reason: reason, since: h.now()}
	logger.Logger.Warn("model has been disabled",
		zap.String("model", modelID),
		zap.String("reason", reason),
		zap.Float64("success_rate", SuccessRate(h.results[modelID])*100))
}

// Disabled returns the reason a model was disabled, if it is.
func (h *Health) Disabled(modelID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.disabled[modelID]
	if !ok {
		return "", false
	}
	return d.reason, true
}

// Enable puts a model back into service and forgets its history.
func (h *Health) Enable(modelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.disabled, modelID)
	delete(h.results, modelID)
}

// SuccessRate is the share of true values, 1 for an empty slice.
func SuccessRate(results []bool) float64 {
	if len(results) == 0 {
		return 1
	}
	ok := 0
	for _, r := range results {
		if r {
			ok++
		}
	}
	return float64(ok) / float64(len(results))
}
