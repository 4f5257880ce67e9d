package response

import (
	"fmt"
	"io"
	"strings"
)

// Render writes r the way the mysql command line client would print it.
func Render(w io.Writer, r *Response) error {
	if err := r.Validate(); err != nil {
		return err
	}

	switch r.Kind {
	case KindError:
		_, err := fmt.Fprintln(w, r.Err.String())
		return err
	case KindOK:
		noun := "rows"
		if r.OK.AffectedRows == 1 {
			noun = "row"
		}
		_, err := fmt.Fprintf(w, "Query OK, %d %s affected\n", r.OK.AffectedRows, noun)
		return err
	}

	rs := r.Result
	if len(rs.Rows) == 0 {
		_, err := fmt.Fprintln(w, "Empty set")
		return err
	}

	widths := make([]int, len(rs.Columns))
	for i, c := range rs.Columns {
		widths[i] = len(c.Name)
	}
	cells := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			s := FormatValue(v)
			cells[i][j] = s
			widths[j] = max(widths[j], len(s))
		}
	}

	var b strings.Builder
	border := func() {
		b.WriteByte('+')
		for _, wd := range widths {
			b.WriteString(strings.Repeat("-", wd+2))
			b.WriteByte('+')
		}
		b.WriteByte('\n')
	}
	line := func(vals []string) {
		b.WriteByte('|')
		for j, s := range vals {
			fmt.Fprintf(&b, " %-*s |", widths[j], s)
		}
		b.WriteByte('\n')
	}

	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}

	border()
	line(names)
	border()
	for _, row := range cells {
		line(row)
	}
	border()
	if len(rs.Rows) == 1 {
		b.WriteString("1 row in set\n")
	} else {
		fmt.Fprintf(&b, "%d rows in set\n", len(rs.Rows))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
