package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/studiowebux/streamload/internal/stresstest"
	"gopkg.in/yaml.v3"
)

// TimestampLayout prefixes every summary line
const TimestampLayout = "2006-01-02 15:04:05.000000"

// SummaryLines returns the text summary in its fixed order
func SummaryLines(res stresstest.Results) []string {
	return []string{
		"Run finished.",
		fmt.Sprintf("Media streams attempted: %d", res.Attempted),
		fmt.Sprintf("Media streams survived: %d", res.FullPasses),
		fmt.Sprintf("Sections played back: %d", res.SegmentsPlayed),
		fmt.Sprintf("Session Token retrieval errors: %d", res.TokenErrors),
	}
}

// WriteReport writes the run summary as text, json or yaml
func WriteReport(w io.Writer, res stresstest.Results, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml":
		data, err := yaml.Marshal(res)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case "text", "":
		stamp := res.FinishedAt
		if stamp.IsZero() {
			stamp = time.Now()
		}
		prefix := stamp.Format(TimestampLayout)
		for _, line := range SummaryLines(res) {
			if _, err := fmt.Fprintf(w, "%s %s\n", prefix, line); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
