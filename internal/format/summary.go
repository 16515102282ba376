package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dm/solrctl/internal/model"
)

const (
	summaryPad = 27
	paramPad   = 35
)

// summaryRows lists the status summary rows in display order.
var summaryRows = []struct {
	label string
	value func(*model.CoreStatus) string
}{
	{"Core Name:", func(s *model.CoreStatus) string { return s.Core }},
	{"Status:", func(s *model.CoreStatus) string { return s.Status }},
	{"Command Is Running:", func(s *model.CoreStatus) string { return strconv.FormatBool(s.CommandIsRunning) }},
	{"Time Elapsed:", func(s *model.CoreStatus) string { return s.TimeElapsed }},
	{"Time Taken:", func(s *model.CoreStatus) string { return s.TimeTaken }},
	{"Total Rows Fetched:", func(s *model.CoreStatus) string { return s.RowsFetched }},
	{"Total Documents Processed:", func(s *model.CoreStatus) string { return strconv.FormatInt(s.DocumentsProcessed, 10) }},
	{"Total Documents Skipped:", func(s *model.CoreStatus) string { return s.DocumentsSkipped }},
	{"Committed:", func(s *model.CoreStatus) string { return s.Committed }},
	{"Optimized:", func(s *model.CoreStatus) string { return s.Optimized }},
	{"Index Version:", func(s *model.CoreStatus) string { return s.IndexVersion }},
	{"Document Count:", func(s *model.CoreStatus) string { return strconv.FormatInt(s.DocumentCount, 10) }},
}

// CoreSummary renders one snapshot as an aligned status table.
// A nil snapshot renders every value empty under a placeholder name.
func CoreSummary(s *model.CoreStatus) string {
	return summary([]*model.CoreStatus{s}, []string{"Core param not set"})
}

// CompareSummary renders two snapshots side by side.
func CompareSummary(a, b *model.CoreStatus) string {
	return summary([]*model.CoreStatus{a, b}, []string{"CoreA param not set", "CoreB param not set"})
}

func summary(cols []*model.CoreStatus, placeholders []string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, row := range summaryRows {
		line := pad(row.label, summaryPad)
		for i, s := range cols {
			var v string
			switch {
			case s != nil:
				v = row.value(s)
			case row.label == "Core Name:":
				v = placeholders[i]
			}
			if i < len(cols)-1 {
				v = pad(v, summaryPad)
			}
			line += v
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Params is the resolved invocation configuration shown in notification mails.
type Params struct {
	Command      string
	Server       string
	Server2      string
	LiveCore     string
	StageCore    string
	Core         string
	Core2        string
	DoBackup     bool
	DoOptimize   bool
	PollInterval time.Duration
	Timeout      time.Duration
	Notify       string
	NotifyTo     string
	NotifyFrom   string
	SMTPHost     string
}

// ParamSummary renders p as an aligned block. Optional values are omitted
// when empty.
func ParamSummary(p Params) string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString(strings.TrimRight(pad(label+": ", paramPad)+value, " "))
		sb.WriteString("\n")
	}
	optional := func(label, value string) {
		if value != "" {
			line(label, value)
		}
	}

	sb.WriteString("\nRequest Parameter Summary\n")
	sb.WriteString("-------------------------\n")
	line("Command", p.Command)
	line("ServerUri", p.Server)
	optional("ServerUri2", p.Server2)
	optional("LiveCore", p.LiveCore)
	optional("StageCore", p.StageCore)
	optional("CoreName", p.Core)
	optional("CoreName2", p.Core2)
	line("doBackup", strconv.FormatBool(p.DoBackup))
	line("doOptimize", strconv.FormatBool(p.DoOptimize))
	line("StatusDuration (seconds)", strconv.Itoa(int(p.PollInterval/time.Second)))
	line("Timeout (minutes)", strconv.Itoa(int(p.Timeout/time.Minute)))
	line("Notify", p.Notify)
	line("emailNotifyTo", p.NotifyTo)
	line("emailNotifyFrom", p.NotifyFrom)
	line("emailNotifySmtpHost", p.SMTPHost)
	sb.WriteString("\n")
	return sb.String()
}

// ProgressLine is the one-line progress report logged on each poll.
// Busy cores report elapsed time, idle cores the time taken.
func ProgressLine(s *model.CoreStatus) string {
	t := s.TimeElapsed
	if s.IsIdle() {
		t = s.TimeTaken
	}
	return fmt.Sprintf("Status: %s; Fetched: %s; Processed: %d; Skipped: %s; Time: %s",
		s.Status, s.RowsFetched, s.DocumentsProcessed, s.DocumentsSkipped, t)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
