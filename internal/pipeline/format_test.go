package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

func sampleItems() ([]BatchItem, []string) {
	c := catalog.Default()
	texts := []string{"hola", "bad"}
	items := []BatchItem{
		{Index: 0, Result: &Result{
			Text: "hola", TranslatedText: "hello",
			Source: c.MustLookup("es"), Target: c.MustLookup("en"), Detected: true,
		}},
		{Index: 1, Err: errors.New("provider down")},
	}
	return items, texts
}

func TestFormatBatch_Text(t *testing.T) {
	items, texts := sampleItems()
	out, err := FormatBatch(items, texts, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "# 1 es -> en\nhello\n\n# 2 error: provider down\nbad\n", out)
}

func TestFormatBatch_JSON(t *testing.T) {
	items, texts := sampleItems()
	out, err := FormatBatch(items, texts, FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Items []struct {
			Index  int    `json:"index"`
			Text   string `json:"text"`
			Error  string `json:"error"`
			Result *struct {
				TranslatedText string `json:"translated_text"`
			} `json:"result"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Items, 2)
	assert.Equal(t, "hello", decoded.Items[0].Result.TranslatedText)
	assert.Nil(t, decoded.Items[1].Result)
	assert.Equal(t, "provider down", decoded.Items[1].Error)
}

func TestFormatBatch_CSV(t *testing.T) {
	items, texts := sampleItems()
	out, err := FormatBatch(items, texts, FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"index", "text", "translated_text", "source", "target", "detected", "error"}, rows[0])
	assert.Equal(t, []string{"0", "hola", "hello", "es", "en", "true", ""}, rows[1])
	assert.Equal(t, []string{"1", "bad", "", "", "", "", "provider down"}, rows[2])
}

func TestFormatBatch_LengthMismatch(t *testing.T) {
	items, _ := sampleItems()
	_, err := FormatBatch(items, []string{"one"}, FormatText)
	require.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	items, _ := sampleItems()
	res := items[0].Result

	out, err := FormatResult(res, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = FormatResult(res, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, out, `"translated_text": "hello"`)

	out, err = FormatResult(res, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "0,hola,hello,es,en,true,")
}
