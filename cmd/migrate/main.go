package main

import (
	"flag"
	"fmt"

	"product-catalog/internal/config"
	"product-catalog/internal/database"
	"product-catalog/internal/logger"

	"go.uber.org/zap"
)

func run(cfg *config.Config, log *zap.Logger, command string, args []string) error {
	db, err := database.New(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.Migrate(db.DB(), command, log, args...)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|status|reset|version|redo|up-to N|down-to N]")
	}
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"} // default to up when no command is given
	}
	command, args := arguments[0], arguments[1:]

	if err := run(cfg, log, command, args); err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	log.Info("Migration command finished", zap.String("command", command))
}
