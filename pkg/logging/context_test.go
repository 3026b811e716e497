package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
	assert.Equal(t, Default(), FromContext(nil)) //nolint:staticcheck // nil context fallback is part of the contract
}

func TestWithSessionID(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithSessionID(ctx, "0f2c9a1e")

	assert.Equal(t, "0f2c9a1e", SessionID(ctx))

	Ctx(ctx).Info().Msg("preview started")
	assert.True(t, tl.Contains("session_id"))
	assert.True(t, tl.Contains("0f2c9a1e"))
}

func TestWithActivityField(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithActivity(ctx, "GB-GOV-1-12345")

	Ctx(ctx).Warn().Msg("code rejected")
	assert.True(t, tl.Contains("iati_identifier"))
	assert.True(t, tl.Contains("GB-GOV-1-12345"))
}
