package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/magefree/mage-engine-go/internal/chat"
	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game/cards"
	"github.com/magefree/mage-engine-go/internal/repository"
	"github.com/magefree/mage-engine-go/internal/server"
	"github.com/magefree/mage-engine-go/internal/table"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting MAGE engine server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("MAGE engine server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Replay storage
	store, err := repository.Open(ctx, cfg.Database, cfg.Replay.Dir, logger)
	if err != nil {
		return fmt.Errorf("failed to open replay store: %w", err)
	}
	defer store.Close()

	hub := server.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Chat, optionally mirrored to redis
	chatOpts := []chat.Option{
		chat.WithRateLimit(rate.Limit(cfg.Chat.MessagesPerSecond), cfg.Chat.Burst),
	}
	if cfg.Redis.Addr != "" {
		publisher, err := chat.NewRedisPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer publisher.Close()
		chatOpts = append(chatOpts, chat.WithPublisher(publisher))
		g.Go(func() error {
			err := publisher.Listen(gctx, func(msg chat.Message) {
				logger.Debug("chat message",
					zap.String("chat_id", msg.ChatID),
					zap.String("from", msg.From),
					zap.String("type", string(msg.Type)))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.Info("chat mirrored to redis", zap.String("addr", cfg.Redis.Addr))
	}
	chatMgr := chat.NewManager(logger, hub, chatOpts...)
	logger.Info("chat manager initialized")

	catalogue := cards.Default()
	tableMgr := table.NewManager(logger, catalogue,
		table.WithChat(chatMgr),
		table.WithReplayStore(store),
		table.WithDefaults(cfg.Table),
	)
	logger.Info("table manager initialized",
		zap.Duration("decision_timeout", cfg.Table.DecisionTimeout),
		zap.Int("max_tables", cfg.Table.MaxTables),
	)

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC,
		server.NewAdminServer(tableMgr, store, logger), logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPC.Address, err)
	}

	// Start gRPC server
	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	// Start WebSocket server
	ws := server.NewWebSocketServer(cfg.Server.WebSocket, hub, tableMgr, chatMgr, logger)
	g.Go(func() error {
		return ws.ListenAndServe(gctx)
	})

	logger.Info("MAGE engine server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return tableMgr.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
