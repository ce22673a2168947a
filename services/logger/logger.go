package logsvc

import (
	"fmt"
	"io"
	"os"
	"sort"

	gokitlog "github.com/go-kit/log"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/credeval/core"
)

// Logger writes logfmt lines and, when enabled, reports to Rollbar.
type Logger struct {
	kit     gokitlog.Logger
	rollbar bool
}

var (
	_ core.Logger = (*Logger)(nil)

	osExit   = os.Exit
	exitFunc = osExit // mockable
)

// NewLogger returns a Logger writing to `w`. Rollbar reporting is enabled outside debug
// and test mode when a token is configured.
func NewLogger(w io.Writer, conf *core.Config) *Logger {
	kit := gokitlog.NewLogfmtLogger(gokitlog.NewSyncWriter(w))
	kit = gokitlog.With(kit, "ts", gokitlog.DefaultTimestampUTC, "caller", gokitlog.Caller(4), "app", conf.AppName)

	enabled := conf.RollbarToken != "" && !conf.Debug && !conf.TestMode
	if enabled {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(errors.StackTracer)
	}
	rollbar.SetEnabled(enabled)
	return &Logger{kit: kit, rollbar: enabled}
}

// Close waits for pending Rollbar reports.
func (l *Logger) Close() {
	if l.rollbar {
		rollbar.Wait()
	}
}

// With returns a Logger tagging every line with `component`, eg. "api" or "db".
func (l *Logger) With(component string) *Logger {
	return &Logger{kit: gokitlog.With(l.kit, "component", component), rollbar: l.rollbar}
}

// keyvals flattens `args`: errors go under "err", maps are spread, anything else is numbered.
func keyvals(level, msg string, args []interface{}) []interface{} {
	kv := []interface{}{"level", level, "msg", msg}
	var n int
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			kv = append(kv, "err", a.Error())
		case map[string]interface{}:
			keys := make([]string, 0, len(a))
			for k := range a {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				kv = append(kv, k, a[k])
			}
		default:
			n++
			kv = append(kv, fmt.Sprintf("arg%d", n), a)
		}
	}
	return kv
}

func (l *Logger) log(level, msg string, args []interface{}) {
	_ = l.kit.Log(keyvals(level, msg, args)...)
}

// report forwards to Rollbar, which expects: msg | error, map[string]interface{}
func (l *Logger) report(fn func(...interface{}), msg string, args []interface{}) {
	if !l.rollbar {
		return
	}
	fn(append([]interface{}{msg}, args...)...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log("debug", msg, args)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.report(rollbar.Info, msg, args)
	l.log("info", msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.Warning, msg, args)
	l.log("warn", msg, args)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.report(rollbar.Error, msg, args)
	l.log("error", msg, args)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.log("fatal", msg, args)
	l.Close()
	exitFunc(1)
}
