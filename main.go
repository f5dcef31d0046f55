package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"scribble/clock"
	"scribble/config"
	"scribble/results"
	"scribble/server"
)

// 入口：TCP 换行协议 + HTTP（WebSocket 与管理接口）共用一个游戏会话
func main() {
	var (
		tcpAddr string
		addr    string
		envFile string
		logFile string
	)
	flag.StringVar(&tcpAddr, "tcp", "", "tcp listen address, e.g. :5555")
	flag.StringVar(&addr, "http", "", "http listen address, e.g. :8080")
	flag.StringVar(&envFile, "env", ".env", "optional .env file")
	flag.StringVar(&logFile, "log", "", "log file path")
	flag.Parse()

	if err := config.LoadDotEnv(envFile); err != nil {
		panic(err)
	}
	cfg := config.Load()
	if tcpAddr != "" {
		cfg.TCPAddr = tcpAddr
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	if err := server.InitLogger(server.LogConfig{File: cfg.LogFile, Level: cfg.LogLevel, Stderr: cfg.LogStderr}); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	words := server.DefaultWords
	if cfg.WordsFile != "" {
		loaded, err := server.LoadWords(cfg.WordsFile)
		if err != nil {
			server.Log.Fatalf("load words: %v", err)
		}
		words = loaded
		server.Log.Infof("loaded %d words from %s", len(words), cfg.WordsFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		recorder results.Recorder = results.Discard{}
		reader   server.ResultsReader
	)
	queueDone := make(chan struct{})
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		store, err := results.NewRedis(ctx, &results.Config{
			RedisClient: client,
			Channel:     cfg.ResultsChannel,
			Keep:        cfg.ResultsKeep,
		})
		if err != nil {
			server.Log.Fatalf("results store: %v", err)
		}
		queue, err := results.NewQueue(store, 64, server.Log.Named("results"))
		if err != nil {
			server.Log.Fatalf("results queue: %v", err)
		}
		go func() {
			defer close(queueDone)
			queue.Run(ctx)
		}()
		recorder, reader = queue, queue
		server.Log.Infof("recording game results to redis %s", cfg.RedisAddr)
	} else {
		close(queueDone)
	}

	srv, err := server.NewServer(server.ServerConfig{
		Rules: server.Rules{
			RoundDuration:   time.Duration(cfg.RoundSeconds) * time.Second,
			RoundEndDelay:   time.Duration(cfg.RoundEndDelaySeconds) * time.Second,
			MinPlayers:      cfg.MinPlayers,
			RoundsPerPlayer: cfg.RoundsPerPlayer,
		},
		Words:         words,
		Clock:         clock.Real{},
		Seed:          cfg.RandomSeed,
		Recorder:      recorder,
		Results:       reader,
		SendQueueSize: cfg.SendQueueSize,
		MaxFrameBytes: cfg.MaxFrameBytes,
		RateLimit:     cfg.RateLimitPerSecond,
		RateBurst:     cfg.RateLimitBurst,
	})
	if err != nil {
		server.Log.Fatalf("create server: %v", err)
	}
	srv.Start()

	ln, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		server.Log.Fatalf("tcp listen: %v", err)
	}
	go func() {
		if err := srv.ServeTCP(ln); err != nil {
			server.Log.Errorf("tcp serve: %v", err)
		}
	}()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}
	go func() {
		server.Log.Infof("http listening on %s (ws at /ws)", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = ln.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnf("server shutdown: %v", err)
	}
	cancel()
	<-queueDone
}
