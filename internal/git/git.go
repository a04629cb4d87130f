package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Change is one file reported by git diff. Deleted files matter to the
// update pipeline: their classes leave the registry instead of being
// re-extracted.
type Change struct {
	Path    string
	Deleted bool
}

// ChangedFiles runs git diff against baseRef inside repoRoot and
// returns the touched files with paths relative to the repository.
func ChangedFiles(repoRoot, baseRef string) ([]Change, error) {
	cmd := exec.Command("git", "diff", "--name-status", baseRef)
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	return parseNameStatus(output), nil
}

// parseNameStatus reads `git diff --name-status` output. Each line is
// a status letter, a tab, and the path; renames (R<score>) carry the
// old and the new path, which both count as changed.
func parseNameStatus(output []byte) []Change {
	var changes []Change
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		status := fields[0]
		switch {
		case strings.HasPrefix(status, "D"):
			changes = append(changes, Change{Path: fields[1], Deleted: true})
		case strings.HasPrefix(status, "R") || strings.HasPrefix(status, "C"):
			// The old path disappears, the new one is (re)extracted.
			changes = append(changes, Change{Path: fields[1], Deleted: true})
			if len(fields) >= 3 {
				changes = append(changes, Change{Path: fields[2]})
			}
		default:
			changes = append(changes, Change{Path: fields[1]})
		}
	}
	return changes
}
