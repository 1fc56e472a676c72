// Package logger holds the process-wide charmbracelet/log logger. Its level
// comes from the logging.log_level setting when one is configured and from
// $LOG_LEVEL otherwise.
package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvLevel names the environment variable consulted when no level is
// configured.
const EnvLevel = "LOG_LEVEL"

var Logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:       "pointerlock",
	CallerOffset: 1,
})

func init() {
	if err := Configure(""); err != nil {
		Logger.SetLevel(log.InfoLevel)
		Logger.Warn("Ignoring "+EnvLevel, "error", err)
	}
}

// ParseLevel accepts the charmbracelet/log level names in any case, plus
// "warning".
func ParseLevel(name string) (log.Level, error) {
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	return log.ParseLevel(name)
}

// Configure sets the level. An empty level falls back to $LOG_LEVEL, then to
// info. At debug level every line also names its caller.
func Configure(level string) error {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	Logger.SetReportCaller(lvl <= log.DebugLevel)
	return nil
}

func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}
