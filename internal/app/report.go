package app

import (
	"fmt"
	"io"

	"ilias-uploader/internal/ilias"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderFiles(out io.Writer, target string, files []ilias.File) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("%s", target)
	t.AppendHeader(table.Row{"File", "Date"})
	for _, f := range files {
		date := ""
		if !f.Date.IsZero() {
			date = f.Date.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{f.Name, date})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderResult(out io.Writer, result Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("%s", result.Target)
	t.AppendHeader(table.Row{"", "File", "Local path"})
	for _, f := range result.Deleted {
		t.AppendRow(table.Row{"deleted", f.Name, ""})
	}
	for _, f := range result.Uploaded {
		t.AppendRow(table.Row{"uploaded", f.Name, f.Path})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Fprintf(out, "Uploaded %d file(s) to %s\n", len(result.Uploaded), result.Target)
}
