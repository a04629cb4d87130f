package diagram

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// RenderFunc turns DOT text into a rendered artifact at outPath. The
// diagram path depends on this capability instead of a concrete tool
// so it stays testable without Graphviz installed.
type RenderFunc func(ctx context.Context, dot string, outPath string) error

// RenderError reports a layout tool that exited non-zero. The stderr
// tail is kept because Graphviz puts the useful message there.
type RenderError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Graphviz returns a RenderFunc that shells out to a Graphviz binary.
// format is the -T output format (png, svg, ...); rankdir, when set,
// flips the layout direction (BT draws parents above children).
func Graphviz(bin, format, rankdir string) RenderFunc {
	return func(ctx context.Context, dot string, outPath string) error {
		tmp, err := os.CreateTemp("", "pyuml-*.dot")
		if err != nil {
			return fmt.Errorf("failed to stage dot file: %w", err)
		}
		defer os.Remove(tmp.Name())

		if _, err := tmp.WriteString(dot); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to stage dot file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to stage dot file: %w", err)
		}

		args := []string{"-T" + format, tmp.Name(), "-o", outPath}
		if rankdir != "" {
			args = append(args, "-Grankdir="+rankdir)
		}

		cmd := exec.CommandContext(ctx, bin, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return &RenderError{
				Tool:   bin,
				Stderr: strings.TrimSpace(stderr.String()),
				Err:    err,
			}
		}
		return nil
	}
}
