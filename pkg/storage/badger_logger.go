package storage

import "github.com/sirupsen/logrus"

// badgerLogger implements badger.Logger on top of logrus.
// Badger's INFO chatter is demoted to debug.
type badgerLogger struct {
	*logrus.Entry
}

func newBadgerLogger(entry *logrus.Entry) *badgerLogger {
	return &badgerLogger{entry}
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.Entry.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.Entry.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.Entry.Tracef(f, v...) }
