package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// stdout receives command output; tests swap it.
var stdout io.Writer = os.Stdout

// Table collects rows and aligns them into columns on Render.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the header, a dashed underline and every row to stdout.
func (t *Table) Render() error {
	underline := make([]string, len(t.headers))
	for i, h := range t.headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, line := range append([][]string{t.headers, underline}, t.rows...) {
		fmt.Fprintln(w, strings.Join(line, "\t"))
	}
	return w.Flush()
}

// printOutput encodes data for the machine-readable --output formats.
func printOutput(data interface{}) error {
	if getOutputFormat() == "yaml" {
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func truncate(s string, n int) string {
	switch {
	case len(s) <= n:
		return s
	case n <= 3:
		return s[:n]
	}
	return s[:n-3] + "..."
}

// formatStatus prefixes a resource state with a marker; unknown states pass through.
func formatStatus(state string) string {
	var marker string
	switch strings.ToLower(state) {
	case "available", "running", "active", "idle", "ok":
		marker = "[+]"
	case "stopped", "paused":
		marker = "[-]"
	case "starting", "stopping", "pending", "creating", "updating", "resuming", "draining", "shutting-down":
		marker = "[*]"
	case "failed", "error", "terminated", "deleting", "inactive":
		marker = "[!]"
	default:
		return state
	}
	return marker + " " + state
}
