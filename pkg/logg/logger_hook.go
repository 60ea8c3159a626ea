//go:build !windows
// +build !windows

package logg

import (
	"fmt"
	"log/syslog"
	"os"
	"path"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	lsys "github.com/sirupsen/logrus/hooks/syslog"
)

const (
	logSuffix = "%Y%m%d-%H.log"
)

// InitLogHook mirrors diagnostics into rotating files under logDir, or into
// syslog when requested. Call before InitLogger.
func InitLogHook(logDir string, logMaxAge, logRotationTime time.Duration, useSyslog bool) error {
	defaultLogHook, syslogHook = nil, nil

	if logDir != "" {
		if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
			return fmt.Errorf("create log dir %s: %w", logDir, err)
		}

		hook, err := newRotatelogHook(path.Join(logDir, "go-fcp-"+logSuffix), logMaxAge, logRotationTime)
		if err != nil {
			return fmt.Errorf("create log hook: %w", err)
		}
		defaultLogHook = hook
		return nil
	}

	if useSyslog {
		hook, err := lsys.NewSyslogHook("", "", syslog.LOG_DEBUG, "go-fcp")
		if err != nil {
			return fmt.Errorf("create syslog hook: %w", err)
		}
		syslogHook = hook
	}
	return nil
}

func newRotatelogHook(logPath string, maxAge, rotationTime time.Duration) (logrus.Hook, error) {
	writer, err := rotatelogs.New(
		logPath,
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	)
	if err != nil {
		return nil, err
	}

	writeMap := lfshook.WriterMap{
		logrus.InfoLevel:  writer,
		logrus.FatalLevel: writer,
		logrus.DebugLevel: writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.PanicLevel: writer,
	}

	formatter := &CommonLogFormatter{
		pid: os.Getpid(),
	}
	return lfshook.NewHook(writeMap, formatter), nil
}
