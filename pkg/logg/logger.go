package logg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// Dlog carries diagnostics. It is usable before InitLogger, which rebuilds it
// once the level, output and hooks are known.
var Dlog = newHandle()

func InitLogger() {
	Dlog = newHandle()
	if defaultLogHook != nil {
		Dlog.Hooks.Add(defaultLogHook)
	} else if syslogHook != nil {
		Dlog.Hooks.Add(syslogHook)
	}
}

var defaultLogHook, syslogHook logrus.Hook

type logger struct {
	level logrus.Level
	out   io.Writer
}

type LogHandle struct {
	logrus.Logger
}

var dlogger = logger{
	level: logrus.WarnLevel,
	out:   os.Stderr,
}

func newHandle() *LogHandle {
	l := &LogHandle{}
	l.Out = dlogger.out
	l.Hooks = make(logrus.LevelHooks)
	l.Formatter = &CommonLogFormatter{
		pid: os.Getpid(),
	}
	l.Level = dlogger.level
	l.SetReportCaller(true)

	return l
}

func SetLevel(level logrus.Level) {
	dlogger.level = level
}

// SetOutput changes where diagnostics go; stderr by default.
func SetOutput(w io.Writer) {
	dlogger.out = w
}

type CommonLogFormatter struct {
	pid int
}

func (f *CommonLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var caller string
	if e.HasCaller() {
		callerPath := path.Join(path.Base(path.Dir(e.Caller.File)), path.Base(e.Caller.File))
		caller = fmt.Sprintf("%s:%d", callerPath, e.Caller.Line)
	}
	timestamp := e.Time.Format("2006-01-02 15:04:05.000000") + " "
	ret := new(bytes.Buffer)
	fmt.Fprintf(ret, "%v%d %v %v %s", timestamp, f.pid, strings.ToUpper(e.Level.String()), e.Message, caller)

	if len(e.Data) != 0 {
		ret.WriteString(" " + fmt.Sprint(e.Data))
	}

	ret.WriteString("\n")
	return ret.Bytes(), nil
}
