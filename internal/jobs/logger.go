package jobs

import (
	"fmt"

	"github.com/goccy/go-json"

	"usbb-go/internal/usbb"
)

// jobLogger records a job's log lines and mirrors them to the process
// logger.
type jobLogger struct {
	s       *Scheduler
	t       *tracked
	process usbb.Logger
}

var _ usbb.Logger = (*jobLogger)(nil)

func (l *jobLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *jobLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *jobLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *jobLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *jobLogger) log(level, msg string, args []any) {
	entry := LogEntry{
		Time:    l.s.clock.Now(),
		Level:   level,
		Message: msg,
		Context: encodeArgs(args),
	}
	l.s.appendLog(l.t, entry)

	tagged := append([]any{"job_id", l.t.job.ID, "job", l.t.job.Name}, args...)
	switch level {
	case "debug":
		l.process.Debug(msg, tagged...)
	case "info":
		l.process.Info(msg, tagged...)
	case "warn":
		l.process.Warn(msg, tagged...)
	default:
		l.process.Error(msg, tagged...)
	}
}

// encodeArgs turns alternating key/value args into a JSON object.
func encodeArgs(args []any) json.RawMessage {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, len(args)/2+1)
	for i := 0; i < len(args); {
		key, ok := args[i].(string)
		if !ok || i+1 == len(args) {
			fields["!BADKEY"] = args[i]
			i++
			continue
		}
		v := args[i+1]
		switch val := v.(type) {
		case error:
			v = val.Error()
		case fmt.Stringer:
			v = val.String()
		}
		fields[key] = v
		i += 2
	}
	data, err := json.Marshal(fields)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"!ENCODING": err.Error()})
	}
	return data
}
