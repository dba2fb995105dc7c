package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level gates Debugf and Infof. Warnf is always emitted.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level that reaches Logf.
func SetLevel(l Level) { level.Store(int32(l)) }

// CurrentLevel returns the active level.
func CurrentLevel() Level { return Level(level.Load()) }

// Debugf logs per-row detail.
func Debugf(format string, v ...interface{}) {
	if CurrentLevel() <= LevelDebug {
		Logf("[debug] "+format, v...)
	}
}

// Infof logs pipeline progress.
func Infof(format string, v ...interface{}) {
	if CurrentLevel() <= LevelInfo {
		Logf(format, v...)
	}
}

// Warnf logs conditions the user should see, such as a degenerate trend.
func Warnf(format string, v ...interface{}) {
	Logf("[warn] "+format, v...)
}
