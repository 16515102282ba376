package engine

import (
	"encoding/xml"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/model"
)

const (
	importFull  = "full-import"
	importDelta = "delta-import"

	cursorFile = "dataimport.properties"

	optimizeTimeout = 10 * time.Minute
	cursorTimeout   = time.Minute
)

// ImportOptions parameterizes a data import command.
type ImportOptions struct {
	Command       string
	Clean         bool
	Optimize      bool
	LastIndexTime string
}

// ImportCommand builds a full-import or delta-import request for core.
func ImportCommand(core string, opts ImportOptions) client.Command {
	return client.Command{
		Path: client.SelectPath(core),
		Params: url.Values{
			"qt":              {"/dataimport"},
			"command":         {opts.Command},
			"verbose":         {"true"},
			"commit":          {"true"},
			"clean":           {strconv.FormatBool(opts.Clean)},
			"optimize":        {strconv.FormatBool(opts.Optimize)},
			"last_index_time": {opts.LastIndexTime},
		},
	}
}

// phaseCommand returns the import command for the session's current phase.
// A fast-delta build runs a delta pass with optimize deferred, then a
// non-cleaning full pass over the same cursor.
func phaseCommand(s *model.Session) client.Command {
	opts := ImportOptions{LastIndexTime: s.LastIndexTime, Optimize: s.Optimize}
	switch {
	case s.Mode == model.ModeFull:
		opts.Command = importFull
		opts.Clean = true
	case s.Mode == model.ModeDelta:
		opts.Command = importDelta
	case s.PhaseOnePending:
		opts.Command = importDelta
		opts.Optimize = false
	default:
		opts.Command = importFull
	}
	return ImportCommand(s.Core, opts)
}

// BackupCommand asks the replication handler for a snapshot of core.
func BackupCommand(core string) client.Command {
	return client.Command{
		Path:   client.ReplicationPath(core),
		Params: url.Values{"command": {"backup"}},
	}
}

// CommitCommand commits pending updates on core.
func CommitCommand(core string) client.Command {
	return UpdateCommand(core, "<update><commit/></update>")
}

// OptimizeCommand merges the index segments of core.
func OptimizeCommand(core string) client.Command {
	return client.Command{
		Path: client.UpdatePath(core),
		Params: url.Values{
			"optimize":     {"true"},
			"waitFlush":    {"false"},
			"waitSearcher": {"false"},
		},
		Timeout: optimizeTimeout,
	}
}

// SwapCommand exchanges the live and stage cores.
func SwapCommand(live, stage string) client.Command {
	return client.Command{
		Path: client.CoreAdminPath(),
		Params: url.Values{
			"action": {"SWAP"},
			"core":   {live},
			"other":  {stage},
		},
	}
}

// CursorCommand reads the data import properties file of core.
func CursorCommand(core string) client.Command {
	return client.Command{
		Path:    client.AdminFilePath(core),
		Params:  url.Values{"file": {cursorFile}},
		Timeout: cursorTimeout,
	}
}

// UpdateCommand posts body to the update handler of core as a stream body.
func UpdateCommand(core, body string) client.Command {
	return client.Command{
		Path:   client.UpdatePath(core),
		Params: url.Values{"stream.body": {body}},
	}
}

// SentinelAddCommand adds a throwaway document with the given id and extra
// fields. Extra fields are written in name order.
func SentinelAddCommand(core, id string, fields map[string]string) client.Command {
	var sb strings.Builder
	sb.WriteString(`<update><add><doc><field name="id">`)
	sb.WriteString(escape(id))
	sb.WriteString(`</field>`)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(`<field name="`)
		sb.WriteString(escape(name))
		sb.WriteString(`">`)
		sb.WriteString(escape(fields[name]))
		sb.WriteString(`</field>`)
	}
	sb.WriteString(`</doc></add></update>`)
	return UpdateCommand(core, sb.String())
}

// SentinelDeleteCommand deletes the throwaway document by id.
func SentinelDeleteCommand(core, id string) client.Command {
	return UpdateCommand(core, "<update><delete><id>"+escape(id)+"</id></delete></update>")
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
