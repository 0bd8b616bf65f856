package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"MicroFrontend-Portal/pkg/logger"
)

// driverName 由 go-sql-driver/mysql 在 init 中注册。
const driverName = "mysql"

// openDatabase 按配置建立连接池并确认数据库可达。
func openDatabase(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg = cfg.withDefaults()
	if cfg.DSN == "" {
		return nil, errors.New("MySQL DSN 不能为空")
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("打开 MySQL 连接池失败: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}

	logger.Named("mysql").Info("descriptor database connected",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
	)
	return db, nil
}
