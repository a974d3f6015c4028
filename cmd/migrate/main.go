package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"card_market_v1/internal/config"
	"card_market_v1/pkg/database"
	"card_market_v1/pkg/logger"
)

// 用法: migrate <up|down|version>
func main() {
	flag.Parse()
	args := flag.Args()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if len(args) < 1 {
		log.Error("用法: migrate <up|down|version>")
		os.Exit(1)
	}

	m, err := database.NewMigrator(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("创建迁移器失败", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("没有待执行的迁移")
			return
		}
		if err != nil {
			log.Fatal("迁移失败", zap.Error(err))
		}
		log.Info("迁移完成")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("没有可回滚的迁移")
			return
		}
		if err != nil {
			log.Fatal("回滚失败", zap.Error(err))
		}
		log.Info("已回滚一个版本")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("尚未执行任何迁移")
			return
		}
		if err != nil {
			log.Fatal("获取版本失败", zap.Error(err))
		}
		log.Info("当前迁移版本", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		log.Error("未知命令", zap.String("command", args[0]))
		os.Exit(1)
	}
}
