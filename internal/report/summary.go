package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatFrames renders a frame count with thousands separators.
func FormatFrames(frames int) string {
	return numberPrinter.Sprintf("%d", frames)
}

// DiscoveredFile is one candidate shown in the discovery summary.
type DiscoveredFile struct {
	Path string
	Size int64
}

// Discovery describes the batch about to run.
type Discovery struct {
	InputPath    string
	OutputDir    string
	Recursive    bool
	SkipExisting bool
	TestFrames   int
	Files        []DiscoveredFile
}

const discoveryPreviewLimit = 10

// WriteDiscovery prints the pre-run summary table.
func WriteDiscovery(w io.Writer, d Discovery) {
	mode := "full"
	if d.TestFrames > 0 {
		mode = fmt.Sprintf("test (%d frames)", d.TestFrames)
	}

	fmt.Fprintln(w, renderTable(
		[]string{"Setting", "Value"},
		[][]string{
			{"Input", d.InputPath},
			{"Output", d.OutputDir},
			{"Recursive", yesNo(d.Recursive)},
			{"Skip existing", yesNo(d.SkipExisting)},
			{"Mode", mode},
			{"Files", fmt.Sprintf("%d", len(d.Files))},
		},
		[]columnAlignment{alignLeft, alignLeft},
	))

	if len(d.Files) == 0 {
		return
	}

	rows := make([][]string, 0, discoveryPreviewLimit+1)
	for i, file := range d.Files {
		if i == discoveryPreviewLimit {
			rows = append(rows, []string{fmt.Sprintf("... and %d more", len(d.Files)-discoveryPreviewLimit), ""})
			break
		}
		rows = append(rows, []string{filepath.Base(file.Path), humanize.Bytes(uint64(file.Size))})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

// Outcome aggregates a finished batch.
type Outcome struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
	OutputDir string
	LogDir    string
}

// WriteOutcome prints the final batch summary table.
func WriteOutcome(w io.Writer, o Outcome) {
	rows := [][]string{
		{"Total", fmt.Sprintf("%d", o.Total)},
		{"Succeeded", fmt.Sprintf("%d", o.Succeeded)},
		{"Failed", fmt.Sprintf("%d", o.Failed)},
		{"Skipped", fmt.Sprintf("%d", o.Skipped)},
		{"Elapsed", o.Elapsed.Round(time.Second).String()},
	}
	if processed := o.Total - o.Skipped; processed > 0 {
		perFile := o.Elapsed.Minutes() / float64(processed)
		rows = append(rows, []string{"Avg minutes/file", fmt.Sprintf("%.1f", perFile)})
	}
	rows = append(rows,
		[]string{"Output", o.OutputDir},
		[]string{"Logs", o.LogDir},
	)
	fmt.Fprintln(w, renderTable(
		[]string{"Result", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
