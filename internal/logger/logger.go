// Package logger configures the shared structured logger. Logs are
// JSON, carry the service name on every entry, and rotate on disk via
// lumberjack while also streaming to stdout.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// Init sets up the process-wide logger for the named service. The log
// level comes from LOG_LEVEL (default info); the rotating file sink is
// enabled when LOG_DIR is set.
func Init(service string) {
	log.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	out := io.Writer(os.Stdout)
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   dir + "/" + service + ".log",
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.SetOutput(out)

	log.WithField("service", service).Info("logger initialized")
}

// With returns an entry carrying the given structured fields.
func With(fields map[string]any) *logrus.Entry { return log.WithFields(fields) }

// Info logs a message at info level with optional structured fields.
func Info(msg string, fields map[string]any) { log.WithFields(fields).Info(msg) }

// Warn logs a message at warn level with optional structured fields.
func Warn(msg string, fields map[string]any) { log.WithFields(fields).Warn(msg) }

// Error logs a message at error level with optional structured fields.
func Error(msg string, fields map[string]any) { log.WithFields(fields).Error(msg) }
