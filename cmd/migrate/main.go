package main

import (
	"errors"
	"flag"

	"equip_shop/internal/pkg/config"
	"equip_shop/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// 用法: migrate [-dir migrations] [-cmd up|down|version] [-force N]
func main() {
	dir := flag.String("dir", "migrations", "migrations directory")
	cmd := flag.String("cmd", "up", "up | down | version")
	force := flag.Int("force", -1, "force schema version and exit")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.App.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log

	m, err := migrate.New("file://"+*dir, cfg.Database.URL())
	if err != nil {
		log.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	if *force >= 0 {
		if err := m.Force(*force); err != nil {
			log.Fatal("force version", zap.Int("version", *force), zap.Error(err))
		}
		log.Info("schema version forced", zap.Int("version", *force))
		return
	}

	switch *cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal("read version", zap.Error(verr))
		}
		log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	default:
		log.Fatal("unknown command", zap.String("cmd", *cmd))
	}

	var dirty migrate.ErrDirty
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("schema already up to date")
	case errors.As(err, &dirty):
		// 上次迁移中断，需人工确认后使用 -force 修复
		log.Fatal("database is dirty, fix and rerun with -force", zap.Int("version", dirty.Version))
	case err != nil:
		log.Fatal("migration failed", zap.Error(err))
	default:
		log.Info("migration successful", zap.String("cmd", *cmd))
	}
}
