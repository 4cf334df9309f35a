package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"vachub/config"
	"vachub/engine"
	"vachub/messaging"
	"vachub/protocol"
	"vachub/statecache"
	"vachub/store"
	"vachub/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "vachub.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("vachub", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(cfg.Robots) == 0 {
		log.Printf("vachub: no robots configured; the API will serve history only")
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("vachub: database open (%s)", cfg.Database.Driver)

	// Redis (optional; the cache degrades to memory only)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var redisStore *statecache.RedisStore
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("vachub: redis not available (%v), running without cache persistence", err)
	} else {
		log.Printf("vachub: redis connected (%s)", cfg.Redis.Address)
		redisStore = statecache.NewRedisStore(redisClient)
	}
	cancel()
	defer redisClient.Close()

	robotIDs := make([]string, 0, len(cfg.Robots))
	for _, rc := range cfg.Robots {
		robotIDs = append(robotIDs, rc.ID)
	}

	cache := statecache.NewManager(redisStore)
	cache.WarmFromRedis(robotIDs)

	// Messaging client (optional remote-control channel)
	var msgClient *messaging.Client
	var reporter *messaging.Reporter
	if cfg.Messaging.Backend != "" {
		msgClient = messaging.NewClient(&cfg.Messaging)
		if err := msgClient.Connect(); err != nil {
			log.Printf("vachub: messaging connect failed (%v)", err)
		} else {
			log.Printf("vachub: messaging connected (%s)", msgClient.Backend())
		}
		defer msgClient.Close()
		reporter = messaging.NewReporter(msgClient, cfg.Messaging.HubID, cfg.Messaging.StateTopic)
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		Cache:     cache,
		MsgClient: msgClient,
		Reporter:  reporter,
	})
	eng.Start()
	defer eng.Stop()

	if msgClient != nil {
		reporter.Start()
		defer reporter.Stop()

		// Inbound commands from the controller
		hubHandler := messaging.NewHubHandler(db, eng.Dispatcher(), cfg.Messaging.HubID, cfg.Messaging.StateTopic)
		ingestor := protocol.NewIngestor(hubHandler, messaging.HubFilter(cfg.Messaging.HubID))
		if err := msgClient.Subscribe(cfg.Messaging.CommandTopic, ingestor.HandleRaw); err != nil {
			log.Printf("vachub: command subscribe failed: %v", err)
		} else {
			log.Printf("vachub: listening for commands on %s", cfg.Messaging.CommandTopic)
		}

		heartbeater := messaging.NewHeartbeater(msgClient, cfg.Messaging.HubID, Version,
			robotIDs, eng.Robots().OnlineCount, cfg.Messaging.StateTopic)
		heartbeater.Start()
		defer heartbeater.Stop()

		drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
		drainer.Start()
		defer drainer.Stop()
	}

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("vachub: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("vachub: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("vachub: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("vachub: stopped")
}
