package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"table-service/internal/audit"
	"table-service/internal/bus"
	"table-service/internal/client"
	"table-service/internal/common/config"
	"table-service/internal/common/db"
	"table-service/internal/common/logger"
	"table-service/internal/common/mq"
	"table-service/internal/snapshot"
)

var defaultPorts = map[string]int{
	"customer": 3000,
	"waiter":   3001,
	"kitchen":  3002,
	"cashier":  3003,
}

func main() {
	mode := flag.String("mode", "", "customer | waiter | kitchen | cashier | audit-log")
	port := flag.Int("port", 0, "http port for client modes")
	deviceID := flag.String("device-id", "", "stable id of this client device (default <mode>-<hostname>)")
	cfgPath := flag.String("config", "", "path to YAML config (default: auto-discover)")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := *cfgPath
	if path == "" {
		var err error
		if path, err = config.FindConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "no config found: pass --config")
			os.Exit(2)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}

	rmq, err := mq.Dial(cfg.Rabbit.Host, cfg.Rabbit.Port, cfg.Rabbit.User, cfg.Rabbit.Pass, cfg.Rabbit.VHost)
	if err != nil {
		lg.Error("rabbitmq_connect_failed", err, nil)
		os.Exit(1)
	}
	defer rmq.Close()
	if err := rmq.DeclareAll(); err != nil {
		lg.Error("rabbitmq_declare_failed", err, nil)
		os.Exit(1)
	}

	switch *mode {
	case "customer", "waiter", "kitchen", "cashier":
		if *port == 0 {
			*port = defaultPorts[*mode]
		}
		device := *deviceID
		if device == "" {
			h, _ := os.Hostname()
			device = *mode + "-" + h
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		lgc := logger.New(*mode + "-client")
		syncBus := bus.NewSyncBus(rmq, device, lgc)
		notifyBus := bus.NewNotifyBus(rmq, device, lgc)
		cl := client.New(client.Role(*mode), device, syncBus, notifyBus, snapshot.NewStore(rdb), lgc)

		lg.Info("service_started", map[string]any{
			"service": *mode + "-client", "device_id": device, "port": *port,
		})
		if err := cl.Run(ctx, *port); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}

	case "audit-log":
		conn, err := db.Connect(ctx, cfg.Database.Host, cfg.Database.Port,
			cfg.Database.User, cfg.Database.Pass, cfg.Database.Name)
		if err != nil {
			lg.Error("db_connect_failed", err, nil)
			os.Exit(1)
		}
		defer conn.Close()

		lga := logger.New("audit-log")
		h, _ := os.Hostname()
		rec := audit.NewRecorder(audit.NewPGRepository(conn), lga)
		syncBus := bus.NewSyncBus(rmq, "audit-log-"+h, lga)
		if err := syncBus.Subscribe(ctx, rec.Handle); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
		lg.Info("service_started", map[string]any{"service": "audit-log"})
		<-ctx.Done()

	default:
		fmt.Fprintln(os.Stderr, "--mode is required: customer | waiter | kitchen | cashier | audit-log")
		os.Exit(2)
	}
}
