package localnet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/walker1992/stake-reward/logger"
)

const defaultCargoBin = "cargo"

/*
Builder compiles an on-chain program from its Rust source directory into a
SBF artifact. The artifact lands in the cargo target directory under the
source tree so the resulting path is deterministic for a given program
name.
*/
type Builder struct {
	// SourceDir is the program crate root, the directory holding Cargo.toml.
	SourceDir string
	// ProgramName is the crate library name, it determines the artifact
	// file name.
	ProgramName string
	// CargoBin overrides the cargo executable.
	CargoBin string

	Log *slog.Logger
}

// ArtifactPath returns the path of the compiled .so artifact.
func (b *Builder) ArtifactPath() string {
	return filepath.Join(b.SourceDir, "target", "deploy", b.ProgramName+".so")
}

/*
Build runs "cargo build-sbf" in the source directory and verifies the
expected artifact exists afterwards. Compiler output is streamed to the
logger line by line so a long build stays observable.
*/
func (b *Builder) Build(ctx context.Context) (string, error) {
	if b.SourceDir == "" {
		return "", fmt.Errorf("program source directory is not set")
	}
	if b.ProgramName == "" {
		return "", fmt.Errorf("program name is not set")
	}
	cargo := b.CargoBin
	if cargo == "" {
		cargo = defaultCargoBin
	}
	log := b.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := exec.CommandContext(ctx, cargo, "build-sbf")
	cmd.Dir = b.SourceDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("creating stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	log.InfoContext(ctx, fmt.Sprintf("building program %q", b.ProgramName), logger.Module("builder"))
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting %s build-sbf: %w", cargo, err)
	}
	streamOutput(ctx, log, stdout)

	if err := cmd.Wait(); err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			return "", fmt.Errorf("%s build-sbf exited with code %d", cargo, xerr.ExitCode())
		}
		return "", fmt.Errorf("running %s build-sbf: %w", cargo, err)
	}

	artifact := b.ArtifactPath()
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("build succeeded but artifact %s is missing: %w", artifact, err)
	}
	log.InfoContext(ctx, fmt.Sprintf("program artifact ready: %s", artifact), logger.Module("builder"))
	return artifact, nil
}

func streamOutput(ctx context.Context, log *slog.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		log.DebugContext(ctx, line, logger.Module("builder"))
	}
}
