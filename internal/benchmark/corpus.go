package benchmark

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sample is one labelled line of a detection corpus.
type Sample struct {
	Code string
	Text string
	Line int
}

// LoadCorpus reads a corpus of "code<TAB>text" lines. Blank lines and lines
// starting with '#' are skipped.
func LoadCorpus(r io.Reader) ([]Sample, error) {
	var samples []Sample
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		code, text, ok := strings.Cut(raw, "\t")
		code, text = strings.TrimSpace(code), strings.TrimSpace(text)
		if !ok || code == "" || text == "" {
			return nil, fmt.Errorf("corpus line %d: want \"code<TAB>text\", got %q", line, raw)
		}
		samples = append(samples, Sample{Code: code, Text: text, Line: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	return samples, nil
}

// LoadCorpusFile is LoadCorpus reading from path.
func LoadCorpusFile(path string) ([]Sample, error) {
	f, err := os.Open(path) //nolint:gosec // G304: corpus path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadCorpus(f)
}
