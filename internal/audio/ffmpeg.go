// Package audio implements the Transcoder capability by shelling out to an
// external ffmpeg binary.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TranscodingError subcategorizes failures from the external ffmpeg
// process, mirroring the source's error taxonomy so diagnostics stay
// specific instead of collapsing into one generic message.
type TranscodingError struct {
	Kind     TranscodingErrorKind
	Path     string
	ExitCode *int
	Stderr   string
	Message  string
	Cause    error
}

type TranscodingErrorKind string

const (
	ErrToolNotFound       TranscodingErrorKind = "tool_not_found"
	ErrInputMissing       TranscodingErrorKind = "input_missing"
	ErrOutputDirCreate    TranscodingErrorKind = "output_dir_create"
	ErrSpawnFailed        TranscodingErrorKind = "spawn_failed"
	ErrProcessExecFailed  TranscodingErrorKind = "exec_failed"
	ErrIO                 TranscodingErrorKind = "io"
)

func (e *TranscodingError) Error() string {
	switch e.Kind {
	case ErrToolNotFound:
		return "ffmpeg not found on PATH"
	case ErrInputMissing:
		return fmt.Sprintf("input file not found: %s", e.Path)
	case ErrOutputDirCreate:
		return fmt.Sprintf("could not create output directory %s: %s", e.Path, e.Message)
	case ErrSpawnFailed:
		return fmt.Sprintf("could not start ffmpeg: %s", e.Message)
	case ErrProcessExecFailed:
		code := "unknown"
		if e.ExitCode != nil {
			code = fmt.Sprintf("%d", *e.ExitCode)
		}
		return fmt.Sprintf("ExecFailed(%s, %q)", code, e.Stderr)
	case ErrIO:
		return fmt.Sprintf("io error: %s", e.Message)
	default:
		return e.Message
	}
}

func (e *TranscodingError) Unwrap() error { return e.Cause }

// Transcoder implements ingest.Transcoder by invoking the external ffmpeg
// binary. It produces 256 kbps AAC in an .m4a container, matching the
// source pipeline's compressed-sibling format.
type Transcoder struct {
	// BinaryPath overrides the "ffmpeg" lookup on PATH when non-empty.
	BinaryPath string
	// TempDir is the process-wide temp area new output files are written
	// into.
	TempDir string
}

// NewTranscoder returns a Transcoder resolving ffmpeg from PATH (or from
// binaryPath, if given) and writing output to tempDir.
func NewTranscoder(binaryPath, tempDir string) *Transcoder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Transcoder{BinaryPath: binaryPath, TempDir: tempDir}
}

// Transcode produces a fresh 256 kbps AAC (.m4a) sibling of inputPath in a
// temp directory. The caller owns the returned path and is responsible for
// deleting it.
//
// If the caller's context is cancelled between spawn and wait, the process
// is still awaited to completion (not killed) and the output discarded by
// the caller; this avoids corrupt temp files at the cost of wasted work.
func (t *Transcoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", &TranscodingError{Kind: ErrInputMissing, Path: inputPath}
	}

	if err := os.MkdirAll(t.TempDir, 0755); err != nil {
		return "", &TranscodingError{Kind: ErrOutputDirCreate, Path: t.TempDir, Message: err.Error(), Cause: err}
	}

	outputPath := filepath.Join(t.TempDir, uuid.New().String()+".m4a")

	binary := t.BinaryPath
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-i", inputPath,
		"-vn",
		"-acodec", "aac",
		"-b:a", "256k",
		"-y",
		outputPath,
	)

	// exec.CommandContext kills the process by default once ctx is done.
	// The design here is deliberately the opposite: let an in-flight ffmpeg
	// run to completion even after cancellation, so cleanup never races a
	// half-written output file. Overriding Cancel to a no-op disables the
	// kill while still letting cmd.Wait return normally on process exit.
	cmd.Cancel = func() error { return nil }

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "not found") {
			return "", &TranscodingError{Kind: ErrToolNotFound, Cause: err}
		}
		return "", &TranscodingError{Kind: ErrSpawnFailed, Message: err.Error(), Cause: err}
	}

	err := cmd.Wait()
	if err != nil && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		// With the no-op Cancel, Wait reports ctx's error when ctx ended while
		// ffmpeg was running, even though the process exited 0 and its output
		// is complete.
		err = nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			return "", &TranscodingError{Kind: ErrProcessExecFailed, ExitCode: &code, Stderr: stderr.String()}
		}
		return "", &TranscodingError{Kind: ErrIO, Message: err.Error(), Cause: err}
	}

	return outputPath, nil
}

// CheckAvailable verifies the configured ffmpeg binary is installed and
// runnable, for use at startup.
func (t *Transcoder) CheckAvailable() error {
	binary := t.BinaryPath
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.Command(binary, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found - please install ffmpeg: %w", err)
	}
	return nil
}
