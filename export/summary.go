package export

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"vavato_scrooper/models"
)

// RenderSummary prints the row count of every sheet, empty ones included.
func RenderSummary(w io.Writer, res *models.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Sheet", "Rows"})

	total := 0
	for _, tbl := range Tables(res) {
		t.AppendRow(table.Row{tbl.Name, len(tbl.Rows)})
		total += len(tbl.Rows)
	}
	t.AppendFooter(table.Row{"Total", total})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
