package sparql

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// PrintResults writes SELECT or ASK results from a JSON body as a table.
func (r *QueryResult) PrintResults(w io.Writer) error {
	bindings, err := r.Bindings()
	if err != nil {
		return err
	}
	return bindings.Print(w)
}

// Print writes the bindings as a table, one column per variable. ASK results print their
// boolean.
func (b *Bindings) Print(w io.Writer) error {
	if b.Variables == nil && len(b.Rows) == 0 {
		_, err := fmt.Fprintln(w, strconv.FormatBool(b.AskResult))
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(b.Variables)
	for _, row := range b.Rows {
		var v []string
		for _, name := range b.Variables {
			if value, ok := row[name]; ok {
				v = append(v, value.String())
			} else {
				v = append(v, "")
			}
		}
		table.Append(v)
	}
	table.Render()
	return nil
}
