/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/acronis/shop-service/log"
)

// GormLogger writes gorm messages and slow queries to log.FieldLogger.
type GormLogger struct {
	logger        log.FieldLogger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a new GormLogger. Queries slower than slowThreshold are logged as warnings.
func NewGormLogger(logger log.FieldLogger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{logger: logger, level: gormlogger.Warn, slowThreshold: slowThreshold}
}

// LogMode implements gorm logger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

// Info implements gorm logger.Interface.
func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

// Warn implements gorm logger.Interface.
func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

// Error implements gorm logger.Interface.
func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace implements gorm logger.Interface.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.logger.Error("sql query failed", log.String("sql", sql), log.Int64("rows", rows),
			log.DurationIn(elapsed, time.Millisecond), log.Error(err))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn("slow sql query", log.String("sql", sql), log.Int64("rows", rows),
			log.DurationIn(elapsed, time.Millisecond))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug("sql query", log.String("sql", sql), log.Int64("rows", rows),
			log.DurationIn(elapsed, time.Millisecond))
	}
}
