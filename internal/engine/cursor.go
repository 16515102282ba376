package engine

import (
	"bufio"
	"context"
	"strings"

	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// LastIndexTime reads the delta import cursor of core from its
// dataimport.properties file. An unreadable file or a missing key yields
// the epoch cursor and a warning; it never fails the caller.
func (o *Orchestrator) LastIndexTime(ctx context.Context, core string) string {
	cmd := CursorCommand(core)
	o.log.Info("Loading "+cursorFile+" to get the last index time with command "+cmd.String(), logfields.Core(core))

	text, err := o.client.ReadText(ctx, cmd)
	if err != nil {
		o.log.Warn("Could not load "+cursorFile+"; setting the last index time to "+model.EpochCursor,
			logfields.Core(core), logfields.Error(err))
		return model.EpochCursor
	}
	cursor := ParseCursor(text, o.cursorKey)
	if cursor == "" {
		o.log.Warn("Could not find the last index time in "+cursorFile+"; setting it to "+model.EpochCursor,
			logfields.Core(core))
		return model.EpochCursor
	}
	o.log.Info("Using last index time "+cursor, logfields.Core(core), logfields.Cursor(cursor))
	return cursor
}

// ParseCursor extracts the value of key from a Java properties document.
// An exact key match wins over any "<entity>.<key>" entry. Property escape
// backslashes are removed.
func ParseCursor(properties, key string) string {
	var fallback string
	sc := bufio.NewScanner(strings.NewReader(properties))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(strings.ReplaceAll(value, `\`, ""))
		switch {
		case name == key:
			if value != "" {
				return value
			}
		case fallback == "" && strings.HasSuffix(name, "."+key):
			fallback = value
		}
	}
	return fallback
}
