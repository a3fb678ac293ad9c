package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscoder_DefaultsTempDir(t *testing.T) {
	tc := NewTranscoder("", "")
	assert.NotEmpty(t, tc.TempDir)
	assert.Equal(t, "", tc.BinaryPath)
}

func TestNewTranscoder_HonorsExplicitTempDir(t *testing.T) {
	dir := t.TempDir()
	tc := NewTranscoder("/usr/local/bin/ffmpeg", dir)
	assert.Equal(t, dir, tc.TempDir)
	assert.Equal(t, "/usr/local/bin/ffmpeg", tc.BinaryPath)
}

func TestTranscode_InputMissing(t *testing.T) {
	tc := NewTranscoder("", t.TempDir())
	_, err := tc.Transcode(context.Background(), filepath.Join(t.TempDir(), "does-not-exist.wav"))
	require.Error(t, err)

	var te *TranscodingError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrInputMissing, te.Kind)
}

func TestTranscode_ToolNotFound(t *testing.T) {
	input, err := os.CreateTemp(t.TempDir(), "input-*.wav")
	require.NoError(t, err)
	input.Close()

	tc := NewTranscoder("/definitely/not/a/real/ffmpeg-binary", t.TempDir())
	_, err = tc.Transcode(context.Background(), input.Name())
	require.Error(t, err)

	var te *TranscodingError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrToolNotFound, te.Kind)
}

func TestTranscodingError_MessagesByKind(t *testing.T) {
	code := 1
	cases := []struct {
		err      *TranscodingError
		contains string
	}{
		{&TranscodingError{Kind: ErrToolNotFound}, "ffmpeg not found"},
		{&TranscodingError{Kind: ErrInputMissing, Path: "/tmp/x.wav"}, "/tmp/x.wav"},
		{&TranscodingError{Kind: ErrProcessExecFailed, ExitCode: &code, Stderr: "boom"}, "boom"},
	}
	for _, c := range cases {
		assert.Contains(t, c.err.Error(), c.contains)
	}
}

func TestCheckAvailable(t *testing.T) {
	tc := NewTranscoder("/definitely/not/a/real/ffmpeg-binary", t.TempDir())
	err := tc.CheckAvailable()
	assert.Error(t, err)
}
