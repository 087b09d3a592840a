package cmd

import (
	"fmt"
	"io"
	"strings"
)

// readText returns the command's text: the joined arguments, or stdin when
// there are none or the only argument is "-".
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (must be one of: %s)", format, strings.Join(allowed, ", "))
}
