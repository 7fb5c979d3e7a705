package migration

import (
	"context"
	"fmt"

	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/internal/database"
	"go.uber.org/zap"
)

// NewMigratorFromConfig 为数据库配置打开独立连接并创建迁移器
func NewMigratorFromConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	db, err := database.OpenSQL(cfg)
	if err != nil {
		return nil, err
	}

	m, err := NewMigrator(db, Config{DatabaseType: dbType, Logger: logger})
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Up 执行全部未应用的迁移并返回迁移后的状态
func Up(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*MigrationInfo, error) {
	m, err := NewMigratorFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return nil, err
	}
	return m.Info(ctx)
}
