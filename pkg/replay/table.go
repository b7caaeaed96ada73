package replay

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes rows as a table to w.
func Render(w io.Writer, rows []Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{"Window", "Edges", "Unresolved", "Pulses", "Rotations/s", "Direction", "Report"})
	for _, r := range rows {
		dir := ""
		if r.Report.Moving {
			dir = r.Report.Direction.String()
		}
		tw.AppendRow(table.Row{
			r.Window,
			r.Edges,
			r.Unresolved,
			r.Report.Pulses,
			fmt.Sprintf("%.3f", r.Report.RotationsPerSecond),
			dir,
			r.Report.String(),
		})
	}

	columnConfigs := make([]table.ColumnConfig, 0, 7)
	for i := 1; i <= 7; i++ {
		align := text.AlignLeft
		if i <= 5 {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	tw.Render()
}
