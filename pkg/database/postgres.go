package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "rental_listing_v1/pkg/logger"
)

// Options 数据库连接参数
type Options struct {
	DSN           string
	AutoMigrate   bool
	MaxIdleConns  int
	MaxOpenConns  int
	SlowThreshold time.Duration
	Logger        *zap.Logger
}

// InitDB 初始化数据库连接
// models: 需要自动建表/迁移的结构体指针
func InitDB(opts Options, models ...interface{}) (*gorm.DB, error) {
	opts.Logger = applog.OrNop(opts.Logger)
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 10
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 100
	}

	db, err := Open(postgres.Open(opts.DSN), opts)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 获取底层的 sqlDB 对象，用于设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 SQL DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	opts.Logger.Info("数据库连接成功")

	if opts.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("自动建表出错: %w", err)
		}
	}
	return db, nil
}

// Open 使用给定方言打开连接，SQL 日志写入 zap
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	opts.Logger = applog.OrNop(opts.Logger)
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 200 * time.Millisecond
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(opts.Logger, opts.SlowThreshold),
	})
}

// ==================== gorm 日志适配 ====================

// GormLogger 将 gorm 日志转发到 zap
type GormLogger struct {
	zap           *zap.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

var _ logger.Interface = (*GormLogger)(nil)

func NewGormLogger(l *zap.Logger, slow time.Duration) *GormLogger {
	return &GormLogger{
		zap:           l.WithOptions(zap.AddCallerSkip(3)).With(zap.String("component", "gorm")),
		level:         logger.Warn,
		slowThreshold: slow,
	}
}

func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.zap.Sugar().Infof(msg, args...)
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.zap.Sugar().Warnf(msg, args...)
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.zap.Sugar().Errorf(msg, args...)
	}
}

// Trace 记录 SQL；记录不存在不算错误
func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.zap.Error("sql error", zap.Error(err), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case elapsed > g.slowThreshold && g.level >= logger.Warn:
		sql, rows := fc()
		g.zap.Warn("slow sql", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case g.level >= logger.Info:
		sql, rows := fc()
		g.zap.Debug("sql", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	}
}
