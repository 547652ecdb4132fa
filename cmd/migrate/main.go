package main

import (
	"flag"
	"fmt"
	"os"

	"feira-smart/internal/config"
	"feira-smart/internal/database"
	"feira-smart/internal/logger"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [-dir migrations] up|down|status\n")
	flag.PrintDefaults()
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding the goose migrations")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	migrator, err := database.NewMigrator(dbService.DB(), *dir, log)
	if err != nil {
		log.Fatal("Failed to prepare migrator", zap.Error(err))
	}

	switch flag.Arg(0) {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "status":
		err = migrator.Status()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
	log.Info("Migration command finished", zap.String("command", flag.Arg(0)))
}
