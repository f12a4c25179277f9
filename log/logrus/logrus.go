package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/cachekit"
)

var _ cachekit.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l, tagging every entry with component=cachekit.
func New(l logrus.FieldLogger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{E: l.WithField("component", "cachekit")}
}

func (l LogrusLogger) Debug(msg string, f cachekit.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f cachekit.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cachekit.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cachekit.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
