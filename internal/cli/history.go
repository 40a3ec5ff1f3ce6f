package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/studiowebux/streamload/internal/stresstest"
	"gopkg.in/yaml.v3"
)

// DefaultHistoryLimit is the number of runs listed when no limit is given
const DefaultHistoryLimit = 20

// historyEntry is the serialized form of a stored run
type historyEntry struct {
	RunID          string `json:"runId" yaml:"run_id"`
	Host           string `json:"host" yaml:"host"`
	StartedAt      string `json:"startedAt" yaml:"started_at"`
	Duration       string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Status         string `json:"status" yaml:"status"`
	Attempted      int64  `json:"attempted" yaml:"attempted"`
	FullPasses     int64  `json:"fullPasses" yaml:"full_passes"`
	SegmentsPlayed int64  `json:"segmentsPlayed" yaml:"segments_played"`
	TokenErrors    int64  `json:"tokenErrors" yaml:"token_errors"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

func toEntry(r *stresstest.Run) historyEntry {
	e := historyEntry{
		RunID:          r.RunID,
		Host:           r.Host,
		StartedAt:      r.StartedAt.Format("2006-01-02 15:04:05"),
		Status:         r.Status,
		Attempted:      r.Attempted,
		FullPasses:     r.FullPasses,
		SegmentsPlayed: r.SegmentsPlayed,
		TokenErrors:    r.TokenErrors,
		Error:          r.ErrorMessage,
	}
	if r.IsCompleted() && r.CompletedAt != nil {
		e.Duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
	}
	return e
}

// History lists the most recent runs stored in dbPath
func History(dbPath string, limit int, format string, w io.Writer) error {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	store, err := stresstest.NewManager(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	return WriteHistory(w, runs, format)
}

// DeleteHistory removes one stored run by its run id
func DeleteHistory(dbPath, runID string) error {
	store, err := stresstest.NewManager(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRunByRunID(runID)
	if err != nil {
		return fmt.Errorf("run %s not found: %w", runID, err)
	}
	return store.DeleteRun(run.ID)
}

// WriteHistory renders stored runs as a table, json or yaml
func WriteHistory(w io.Writer, runs []*stresstest.Run, format string) error {
	entries := make([]historyEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, toEntry(r))
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case "text", "":
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "No runs recorded.")
			return err
		}

		renderer := lipgloss.NewRenderer(w)
		header := renderer.NewStyle().Bold(true).Padding(0, 1)
		cell := renderer.NewStyle().Padding(0, 1)

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("RUN", "HOST", "STARTED", "DURATION", "STATUS", "ATTEMPTED", "SURVIVED", "SEGMENTS", "TOKEN ERRORS").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return header
				}
				return cell
			})
		for _, e := range entries {
			t.Row(shortID(e.RunID), e.Host, e.StartedAt, e.Duration, e.Status,
				strconv.FormatInt(e.Attempted, 10),
				strconv.FormatInt(e.FullPasses, 10),
				strconv.FormatInt(e.SegmentsPlayed, 10),
				strconv.FormatInt(e.TokenErrors, 10))
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err

	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
