package logfields

import (
	"time"

	"go.uber.org/zap"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyCommand    = "command"
	KeyServer     = "server"
	KeyCore       = "core"
	KeyLiveCore   = "live_core"
	KeyMode       = "mode"
	KeyStatus     = "status"
	KeyOutcome    = "outcome"
	KeyVersion    = "index_version"
	KeyDocCount   = "document_count"
	KeyCursor     = "last_index_time"
	KeyAttempt    = "attempt"
	KeyPolls      = "polls"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyJob        = "job"
	KeyError      = "error"
)

func RunID(id string) zap.Field { return zap.String(KeyRunID, id) }
func Command(c string) zap.Field { return zap.String(KeyCommand, c) }
func Server(s string) zap.Field { return zap.String(KeyServer, s) }
func Core(c string) zap.Field { return zap.String(KeyCore, c) }
func LiveCore(c string) zap.Field { return zap.String(KeyLiveCore, c) }
func Mode(m string) zap.Field { return zap.String(KeyMode, m) }
func Status(s string) zap.Field { return zap.String(KeyStatus, s) }
func Outcome(o string) zap.Field { return zap.String(KeyOutcome, o) }
func Version(v string) zap.Field { return zap.String(KeyVersion, v) }
func DocCount(n int64) zap.Field { return zap.Int64(KeyDocCount, n) }
func Cursor(c string) zap.Field { return zap.String(KeyCursor, c) }
func Attempt(n int) zap.Field { return zap.Int(KeyAttempt, n) }
func Polls(n int) zap.Field { return zap.Int(KeyPolls, n) }
func Path(p string) zap.Field { return zap.String(KeyPath, p) }
func Job(name string) zap.Field { return zap.String(KeyJob, name) }
func Duration(d time.Duration) zap.Field {
	return zap.Int64(KeyDurationMS, d.Milliseconds())
}
func Error(err error) zap.Field {
	if err == nil {
		return zap.String(KeyError, "")
	}
	return zap.String(KeyError, err.Error())
}
