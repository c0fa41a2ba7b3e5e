package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandTranscriberEmptyCommand(t *testing.T) {
	assert.Nil(t, NewCommandTranscriber(""))
	assert.Nil(t, NewCommandTranscriber("   "))
	assert.NotNil(t, NewCommandTranscriber("whisper-cli"))
}

func TestCommandTranscriberRunsCommand(t *testing.T) {
	tr := NewCommandTranscriber("echo transcribed")

	out, err := tr.Transcribe(context.Background(), "clips/a.wav")
	require.NoError(t, err)
	assert.Equal(t, "transcribed clips/a.wav", out)
}

func TestCommandTranscriberEmptyCommandErrors(t *testing.T) {
	// Zero-value construction must error instead of panicking.
	tr := &CommandTranscriber{}

	_, err := tr.Transcribe(context.Background(), "clips/a.wav")
	assert.Error(t, err)
}

func TestCommandTranscriberCommandFailure(t *testing.T) {
	tr := NewCommandTranscriber("false")

	_, err := tr.Transcribe(context.Background(), "clips/a.wav")
	assert.Error(t, err)
}
