// Package instances loads the list of instance identifiers a run operates on.
package instances

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrFileMissing is returned when the instances file does not exist.
var ErrFileMissing = errors.New("the specified instances file doesn't exist")

// Load reads one identifier per line from path. See Parse.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileMissing)
		}
		return nil, fmt.Errorf("failed to open instances file: %w", err)
	}
	defer f.Close()

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ids, nil
}

// Parse trims and lower-cases every non-blank line, keeping file order.
// Duplicates are kept.
func Parse(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ids = append(ids, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
