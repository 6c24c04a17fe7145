package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "abcd...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestRedact(t *testing.T) {
	RegisterSecret("hunter2-redis-password")

	tests := []struct {
		name    string
		in      string
		leak    string
		wantHas string
	}{
		{"bearer header", "Authorization: Bearer abc.def-123", "abc.def-123", "Bearer ****"},
		{"openrouter key", "invalid key sk-or-v1-0123456789abcdef", "0123456789abcdef", "sk-o..."},
		{"query param", "GET /v1?api_key=secretvalue&x=1", "secretvalue", "api_key=****"},
		{"json field", `{"token": "tok_live_value"}`, "tok_live_value", `"token": "****`},
		{"registered secret", "auth failed for hunter2-redis-password", "hunter2-redis-password", "hunt...word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(tt.in)
			assert.NotContains(t, got, tt.leak)
			assert.Contains(t, got, tt.wantHas)
		})
	}

	assert.Equal(t, "", Redact(""))
	assert.Equal(t, "nessun segreto qui", Redact("nessun segreto qui"))
}

func TestCustomErrorRedactsCause(t *testing.T) {
	err := ErrAIServiceError.Wrap(fmt.Errorf("upstream: Bearer sk-or-v1-abcdefghijklmnop"))

	assert.ErrorIs(t, err, ErrAIServiceError)
	assert.NotContains(t, err.Error(), "abcdefghijklmnop")

	status, resp := ToResponse(err, true)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, ErrCodeAIService, resp.Code)
	assert.NotContains(t, resp.Details, "abcdefghijklmnop")

	status, resp = ToResponse(errors.New("boom"), false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternalError, resp.Code)
	assert.Empty(t, resp.Details)
}

func TestLoggerMasksSecretFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(zap.NewNop())

	LogInfo("call",
		zap.String("api_key", "sk-or-v1-abcdefghijklmnop"),
		zap.String("image_data", "iVBORw0KGgo..."),
		zap.Error(errors.New("Bearer abcdefghijklmnop")),
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "sk-o...mnop", fields["api_key"])
		assert.NotContains(t, fields, "image_data")
		assert.Equal(t, "Bearer ****", fields["error"])
	}
}

func TestRedactorsAreIndependent(t *testing.T) {
	a := NewRedactor("chiave-del-servizio-a")
	b := NewRedactor()
	b.Register("chiave-del-servizio-b")
	b.Register("ab")

	msg := "chiave-del-servizio-a e chiave-del-servizio-b"
	assert.Equal(t, "chia...io-a e chiave-del-servizio-b", a.Redact(msg))
	assert.Equal(t, "chiave-del-servizio-a e chia...io-b", b.Redact(msg))
	assert.Equal(t, msg, Redact(msg))

	var none *Redactor
	none.Register("chiave-del-servizio-c")
	assert.Equal(t, "Bearer ****", none.Redact("Bearer chiave-del-servizio-c"))
}

func TestRedactorWrap(t *testing.T) {
	r := NewRedactor("chiave-segreta-123")
	cause := errors.New("401 per chiave-segreta-123")

	err := r.Wrap(fmt.Errorf("openrouter: %w", cause))
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "chiave-segreta-123")
	assert.Contains(t, err.Error(), "chia...-123")
	assert.NoError(t, r.Wrap(nil))
}
