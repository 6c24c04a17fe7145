package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"recipe-extractor/internal/core/ai/cache"
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProvider struct {
	replies []string
	errs    []error
	calls   int
	last    *provider.Request
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) GetModel() string { return "fake/model" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	i := f.calls
	f.calls++
	f.last = req
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	content := ""
	if i < len(f.replies) {
		content = f.replies[i]
	}
	return &provider.Response{Content: content, Model: "fake/model"}, nil
}

func TestCompleteMissing(t *testing.T) {
	p := &fakeProvider{replies: []string{"```json\n{\"servings\": 4, \"difficulty\": \"media\"}\n```"}}
	svc := NewService(p, nil, Config{}, nil)

	r := recipe.New()
	r.Title = "Risotto"
	c, err := svc.CompleteMissing(context.Background(), r, "Risotto allo zafferano", []string{"difficulty", "servings"})
	require.NoError(t, err)
	require.NotNil(t, c.Patch.Servings)
	assert.Equal(t, 4, *c.Patch.Servings)
	assert.Equal(t, "fake", c.Provider)
	assert.Equal(t, 1, c.Attempts)
	assert.True(t, p.last.JSONMode)
	assert.Contains(t, p.last.Messages[1].Content, `CAMPI MANCANTI: ["difficulty","servings"]`)
}

func TestCompleteMissingRetries(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{errors.New("boom"), nil},
		replies: []string{"", `{"title":"Tiramisù"}`},
	}
	svc := NewService(p, nil, Config{Attempts: 2}, nil)

	c, err := svc.CompleteMissing(context.Background(), recipe.New(), "x", []string{"title"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Attempts)
	assert.Equal(t, 2, p.calls)
}

func TestCompleteMissingFailure(t *testing.T) {
	p := &fakeProvider{replies: []string{"non lo so", "{}"}}
	svc := NewService(p, nil, Config{Attempts: 2}, nil)

	_, err := svc.CompleteMissing(context.Background(), recipe.New(), "x", []string{"title"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAIServiceError)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 2, p.calls)
}

func TestCompleteMissingAttempts(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		wantCalls int
	}{
		{"single attempt", 1, 1},
		{"three attempts", 3, 3},
		{"default", 0, DefaultAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{errs: []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")}}
			svc := NewService(p, nil, Config{Attempts: tt.attempts}, nil)

			_, err := svc.CompleteMissing(context.Background(), recipe.New(), "x", []string{"title"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, p.calls)
		})
	}
}

func TestCompleteMissingRedactsWithOwnRedactor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	common.UseLogger(zap.New(core))
	defer common.UseLogger(zap.NewNop())

	const secret = "credenziale-del-servizio-99"
	cause := errors.New("rifiutato: " + secret)
	p := &fakeProvider{errs: []error{cause}}
	svc := NewService(p, nil, Config{Attempts: 1, Redactor: common.NewRedactor(secret)}, nil)

	_, err := svc.CompleteMissing(context.Background(), recipe.New(), "x", []string{"title"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), secret)
	assert.Contains(t, err.Error(), "cred...e-99")

	entries := logs.FilterMessage("AI completion attempt failed").All()
	if assert.Len(t, entries, 1) {
		assert.NotContains(t, entries[0].ContextMap()["error"], secret)
	}
	assert.Equal(t, secret, common.Redact(secret))
}

func TestCompleteMissingUsesCache(t *testing.T) {
	store := cache.NewManager(cache.Config{Enabled: true, MaxSize: 10, TTL: time.Hour})
	defer store.Close()

	p := &fakeProvider{replies: []string{`{"servings": 2}`}}
	svc := NewService(p, store, Config{}, nil)

	_, err := svc.CompleteMissing(context.Background(), recipe.New(), "testo", []string{"servings"})
	require.NoError(t, err)

	c, err := svc.CompleteMissing(context.Background(), recipe.New(), "testo", []string{"servings"})
	require.NoError(t, err)
	assert.True(t, c.CacheHit)
	assert.Equal(t, 1, p.calls)
}

func TestBuildPromptTruncates(t *testing.T) {
	src := strings.Repeat("a", 50)
	prompt := BuildPrompt(nil, src, nil, 10)
	assert.Contains(t, prompt, "TESTO ORIGINALE:\naaaaaaaaaa"+TruncationMarker+"\n")
	assert.Contains(t, prompt, "CAMPI MANCANTI: []")
	assert.Contains(t, prompt, "RICETTA ESISTENTE: {}")

	prompt = BuildPrompt(nil, "breve", nil, 10)
	assert.NotContains(t, prompt, TruncationMarker)
}
