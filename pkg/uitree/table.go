package uitree

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders nodes as a console table. limit <= 0 means no limit.
func WriteTable(w io.Writer, nodes []*Node, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Class", "Resource ID", "Text", "Content-Desc", "Clickable"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for i, n := range nodes {
		if limit > 0 && i >= limit {
			break
		}
		clickable := ""
		if n.Clickable {
			clickable = "yes"
		}
		table.Append([]string{strconv.Itoa(i + 1), n.Class, n.ResourceID, n.Text, n.ContentDesc, clickable})
	}

	table.SetFooter([]string{"", "", "", "", "Total", strconv.Itoa(len(nodes))})
	table.Render()
}
