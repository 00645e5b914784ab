package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"NSSaDS/ftp/internal/infrastructure/network"
	"NSSaDS/ftp/internal/infrastructure/repository"
	"NSSaDS/ftp/internal/usecase"
	"NSSaDS/ftp/pkg/config"
	"NSSaDS/ftp/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		host       = flag.String("host", "", "Server host")
		port       = flag.String("port", "", "Server port")
		root       = flag.String("root", "", "Directory new sessions start in")
		metrics    = flag.String("metrics", "", "Address for the Prometheus /metrics endpoint")
		db         = flag.String("db", "", "Path to the SQLite credentials database")
		framing    = flag.String("framing", "", "Message framing: length or burst")
		logLevel   = flag.String("log-level", "", "Log level")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	overrides := map[*string]*string{
		host:     &cfg.Server.Host,
		port:     &cfg.Server.Port,
		root:     &cfg.Server.Root,
		metrics:  &cfg.Server.MetricsAddr,
		db:       &cfg.Server.CredentialsDB,
		framing:  &cfg.Server.Framing,
		logLevel: &cfg.Log.Level,
	}
	for flagValue, field := range overrides {
		if *flagValue != "" {
			*field = *flagValue
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Setup(cfg.Log, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	log := logrus.WithField("function", "main")

	fileMgr, err := repository.NewFileManager(cfg.Server.Root, nil)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Failed to open root directory")
	}

	creds, err := repository.NewSQLiteCredentialStore(cfg.Server.CredentialsDB)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Failed to open credential store")
	}
	defer creds.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	commandHandler := usecase.NewCommandHandler(fileMgr, creds)
	connMgr := network.NewTCPConnectionManager(&cfg.Server, fileMgr, repository.NewSessionRegistry())
	server := network.NewTCPServer(&cfg.Server, commandHandler, connMgr)

	if cfg.Server.MetricsAddr != "" {
		metricsServer := network.ServeMetrics(cfg.Server.MetricsAddr)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(ctx, addr); err != nil {
		log.WithField("error", err.Error()).Error("Server error")
		return
	}

	log.Info("Server stopped")
}
