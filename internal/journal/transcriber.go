package journal

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/mveikko/daybook-go/internal/errors"
)

// CommandTranscriber bridges the Transcriber interface to an external
// speech-to-text command. The command receives the audio reference as its
// last argument and must print the transcript to stdout.
type CommandTranscriber struct {
	// Command is the executable plus any leading arguments, for example
	// "whisper-cli --model small --output txt".
	Command string
}

// NewCommandTranscriber builds a transcriber for the configured command.
// Returns nil when the command is empty, which disables transcription.
func NewCommandTranscriber(command string) *CommandTranscriber {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	return &CommandTranscriber{Command: command}
}

// Transcribe runs the external command for one audio segment and returns
// its stdout with surrounding whitespace trimmed.
func (c *CommandTranscriber) Transcribe(ctx context.Context, audioRef string) (string, error) {
	parts := strings.Fields(c.Command)
	if len(parts) == 0 {
		return "", errors.Newf("no transcription command configured").
			Component("journal").
			Category(errors.CategoryTranscription).
			Build()
	}
	args := append(parts[1:], audioRef)

	cmd := exec.CommandContext(ctx, parts[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.New(err).
			Component("journal").
			Category(errors.CategoryTranscription).
			Context("command", parts[0]).
			Context("audio_ref", audioRef).
			Context("stderr", strings.TrimSpace(stderr.String())).
			Build()
	}
	return strings.TrimSpace(stdout.String()), nil
}
