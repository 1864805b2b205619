package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends gorm's output through logrus.
type gormLogger struct {
	level logger.LogLevel
}

// NewLogger maps a logrus level name onto gorm's levels. SQL statements are
// only logged at trace.
func NewLogger(logLevel string) logger.Interface {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		lvl = logrus.GetLevel()
	}

	level := logger.Silent
	switch {
	case lvl >= logrus.TraceLevel:
		level = logger.Info
	case lvl >= logrus.WarnLevel:
		level = logger.Warn
	case lvl >= logrus.ErrorLevel:
		level = logger.Error
	}
	return &gormLogger{level: level}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		logrus.Debugf(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		logrus.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		logrus.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		logrus.WithFields(logrus.Fields{"elapsed": elapsed, "rows": rows}).Errorf("%s: %v", sql, err)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		logrus.WithFields(logrus.Fields{"elapsed": elapsed, "rows": rows}).Warnf("slow query: %s", sql)
	case l.level >= logger.Info:
		sql, rows := fc()
		logrus.WithFields(logrus.Fields{"elapsed": elapsed, "rows": rows}).Trace(sql)
	}
}
