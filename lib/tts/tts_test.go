package tts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGoogleDefaults(t *testing.T) {
	synth, err := NewGoogle(t.TempDir(), "")
	assert.NoError(t, err)
	assert.Equal(t, "en", synth.Language())
}

func TestNewGoogleOverride(t *testing.T) {
	synth, err := NewGoogle(t.TempDir(), "cz")
	assert.NoError(t, err)
	assert.Equal(t, "cs", synth.Language())
}

func TestSynthesizeEmpty(t *testing.T) {
	synth, _ := NewGoogle(t.TempDir(), "en")
	_, err := synth.Synthesize(context.Background(), "  ", "clip")
	assert.Error(t, err)
}
