package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"usbb-go/internal/jobs"
)

// WriteLogEntry prints a job log line as
//
//	<timestamp>\t<LEVEL>\t<jobID>\t<message>\t<key=value ...>
//
// with keys in alphabetical order.
func WriteLogEntry(w io.Writer, jobID string, e jobs.LogEntry) error {
	ts := e.Time.UTC().Format("2006-01-02T15:04:05Z")
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", ts, strings.ToUpper(e.Level), jobID, e.Message)

	if len(e.Context) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(e.Context, &fields); err != nil {
			fmt.Fprintf(&b, "\t%s", e.Context)
		} else {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "\t%s=%v", k, fields[k])
			}
		}
	}

	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
