package app

import (
	"bytes"
	"testing"
	"time"

	"usbb-go/internal/jobs"
)

func TestWriteLogEntry(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name  string
		jobID string
		entry jobs.LogEntry
		want  string
	}{
		{
			name:  "basic info message",
			jobID: "backup-1",
			entry: jobs.LogEntry{Time: ts, Level: "info", Message: "device backed up"},
			want:  "2024-06-15T14:30:45Z\tINFO\tbackup-1\tdevice backed up\n",
		},
		{
			name:  "debug level",
			jobID: "scan-2",
			entry: jobs.LogEntry{Time: ts, Level: "debug", Message: "file added"},
			want:  "2024-06-15T14:30:45Z\tDEBUG\tscan-2\tfile added\n",
		},
		{
			name:  "context fields are sorted",
			jobID: "scan-3",
			entry: jobs.LogEntry{
				Time: ts, Level: "warn", Message: "file moved",
				Context: []byte(`{"to":"b/x.jpg","from":"a/x.jpg"}`),
			},
			want: "2024-06-15T14:30:45Z\tWARN\tscan-3\tfile moved\tfrom=a/x.jpg\tto=b/x.jpg\n",
		},
		{
			name:  "non-UTC time is converted",
			jobID: "dedup-4",
			entry: jobs.LogEntry{Time: ts.In(time.FixedZone("EST", -5*3600)), Level: "error", Message: "failed"},
			want:  "2024-06-15T14:30:45Z\tERROR\tdedup-4\tfailed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteLogEntry(&buf, tt.jobID, tt.entry); err != nil {
				t.Fatalf("WriteLogEntry() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteLogEntry() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}
