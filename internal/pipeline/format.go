package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Output formats understood by the formatters.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// FormatResult renders a single translation.
func FormatResult(res *Result, format string) (string, error) {
	switch format {
	case FormatJSON:
		bts, err := json.MarshalIndent(res, "", "  ")
		return string(bts), err
	case FormatCSV:
		return formatCSV([]BatchItem{{Result: res}}, []string{res.Text})
	default:
		return res.TranslatedText, nil
	}
}

// FormatBatch renders batch items. texts are the batch inputs, used for
// rows whose translation failed.
func FormatBatch(items []BatchItem, texts []string, format string) (string, error) {
	if len(items) != len(texts) {
		return "", fmt.Errorf("format: %d items for %d texts", len(items), len(texts))
	}
	switch format {
	case FormatJSON:
		return formatJSON(items, texts)
	case FormatCSV:
		return formatCSV(items, texts)
	default:
		return formatText(items, texts), nil
	}
}

type jsonItem struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func formatJSON(items []BatchItem, texts []string) (string, error) {
	out := struct {
		Items []jsonItem `json:"items"`
	}{Items: make([]jsonItem, len(items))}
	for i, it := range items {
		out.Items[i] = jsonItem{Index: i, Text: texts[i], Result: it.Result}
		if it.Err != nil {
			out.Items[i].Error = it.Err.Error()
		}
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

func formatCSV(items []BatchItem, texts []string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	rows := [][]string{{"index", "text", "translated_text", "source", "target", "detected", "error"}}
	for i, it := range items {
		row := []string{strconv.Itoa(i), texts[i], "", "", "", "", ""}
		if it.Result != nil {
			row[2] = it.Result.TranslatedText
			row[3] = it.Result.Source.Code
			row[4] = it.Result.Target.Code
			row[5] = strconv.FormatBool(it.Result.Detected)
		}
		if it.Err != nil {
			row[6] = it.Err.Error()
		}
		rows = append(rows, row)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatText(items []BatchItem, texts []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		if it.Err != nil {
			fmt.Fprintf(&b, "# %d error: %v\n%s\n", i+1, it.Err, texts[i])
			continue
		}
		fmt.Fprintf(&b, "# %d %s -> %s\n%s\n", i+1, it.Result.Source.Code, it.Result.Target.Code, it.Result.TranslatedText)
	}
	return b.String()
}
