package mdfmt

import (
	"strings"

	"github.com/mattn/go-runewidth"
	extast "github.com/yuin/goldmark/extension/ast"
)

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// table prints a pipe table with every column padded to its widest cell.
func (p *printer) table(t *extast.Table) {
	cols := len(t.Alignments)
	var rows [][]string
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		row := make([]string, cols)
		i := 0
		for c := r.FirstChild(); c != nil && i < cols; c = c.NextSibling() {
			s := p.sub()
			s.inlines(c)
			row[i] = strings.TrimSpace(s.String())
			i++
		}
		rows = append(rows, row)
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	for i, row := range rows {
		cells := make([]string, cols)
		for j, cell := range row {
			cells[j] = pad(cell, widths[j], t.Alignments[j])
		}
		p.write("| " + strings.Join(cells, " | ") + " |")
		p.newline()
		if i == 0 {
			for j := range cells {
				cells[j] = delimiter(widths[j], t.Alignments[j])
			}
			p.write("| " + strings.Join(cells, " | ") + " |")
			p.newline()
		}
	}
}

func pad(cell string, width int, align extast.Alignment) string {
	gap := width - displayWidth(cell)
	switch align {
	case extast.AlignRight:
		return strings.Repeat(" ", gap) + cell
	case extast.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + cell + strings.Repeat(" ", gap-left)
	default:
		return cell + strings.Repeat(" ", gap)
	}
}

func delimiter(width int, align extast.Alignment) string {
	switch align {
	case extast.AlignLeft:
		return ":" + strings.Repeat("-", width-1)
	case extast.AlignRight:
		return strings.Repeat("-", width-1) + ":"
	case extast.AlignCenter:
		return ":" + strings.Repeat("-", width-2) + ":"
	default:
		return strings.Repeat("-", width)
	}
}
