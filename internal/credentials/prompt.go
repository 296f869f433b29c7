package credentials

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Select lists names numbered from 1 and asks until the operator enters a
// number in range. It fails with ErrNoProfileSelected only when input ends.
func Select(in io.Reader, out io.Writer, names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoProfiles
	}

	fmt.Fprintln(out, "Available profiles: ")
	for i, name := range names {
		fmt.Fprintf(out, "%d. %s\n", i+1, name)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Please choose a valid profile: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("%w: %w", ErrNoProfileSelected, err)
			}
			return "", ErrNoProfileSelected
		}
		idx, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || idx < 1 || idx > len(names) {
			continue
		}
		return names[idx-1], nil
	}
}

// Resolve picks a profile from f: by name when name is set, otherwise by
// prompting on in/out.
func Resolve(f *File, name string, in io.Reader, out io.Writer) (*Profile, error) {
	if name == "" {
		var err error
		name, err = Select(in, out, f.Names())
		if err != nil {
			return nil, err
		}
	}
	return f.Get(name)
}
