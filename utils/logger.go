package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// Packages log before main configures output; keep the loggers usable.
	InitLogger()
}

// InitLogger sets InfoLogger to stdout and ErrorLogger to stderr.
func InitLogger() {
	InfoLogger = newLogger(os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)
}

// SetLogLevel applies a textual level ("debug", "warn", ...) to InfoLogger.
// Unknown values leave the level untouched.
func SetLogLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		ErrorLogger.Printf("Unknown LOG_LEVEL %q: %v", level, err)
		return
	}
	InfoLogger.SetLevel(lvl)
}

// SilenceLoggers discards all output. Used by tests.
func SilenceLoggers() {
	InfoLogger.SetOutput(io.Discard)
	ErrorLogger.SetOutput(io.Discard)
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(level)
	return l
}
