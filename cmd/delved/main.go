// Package main provides the delve daemon: it generates the dungeon catalog and
// serves the expedition facade over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/delve/internal/config"
	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/dungeon"
	"github.com/cory-johannsen/delve/internal/game/session"
	"github.com/cory-johannsen/delve/internal/gameserver"
	"github.com/cory-johannsen/delve/internal/observability"
	"github.com/cory-johannsen/delve/internal/scripting"
	"github.com/cory-johannsen/delve/internal/server"
	"github.com/cory-johannsen/delve/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scriptRoot := flag.String("script-root", "", "override scripting.root; per-theme Lua hook directories")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *scriptRoot != "" {
		cfg.Scripting.Root = *scriptRoot
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	var src dice.Source
	if cfg.Generation.Seed != 0 {
		src = dice.NewSeededSource(cfg.Generation.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewLoggedRoller(src, logger)

	var genOpts []dungeon.Option
	if cfg.Telemetry.Enabled {
		genOpts = append(genOpts, dungeon.WithTracer(observability.Tracer("dungeon")))
	}
	generator := dungeon.NewGenerator(src, logger, genOpts...)

	var mgrOpts []session.ManagerOption
	var scripts *scripting.Manager
	if cfg.Scripting.Root != "" {
		scripts = scripting.NewManager(roller, logger)
		if _, err := scripts.LoadThemesFromDir(cfg.Scripting.Root, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading theme scripts", zap.Error(err))
		}
		mgrOpts = append(mgrOpts, session.WithExploreHook(scriptHook(scripts)))
	}

	manager := session.NewManager(generator, roller, logger, mgrOpts...)
	catalogStart := time.Now()
	if err := manager.InitializeCatalog(ctx, cfg.Generation.CatalogSize); err != nil {
		logger.Fatal("initializing dungeon catalog", zap.Error(err))
	}
	logger.Info("dungeon catalog ready",
		zap.Int("dungeons", cfg.Generation.CatalogSize),
		zap.Duration("elapsed", time.Since(catalogStart)),
	)

	lifecycle := server.NewLifecycle(logger)

	var recorder gameserver.Recorder
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		recorder = postgres.NewExpeditionRepository(pool.DB())

		watchCtx, stopWatch := context.WithCancel(ctx)
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				err := pool.Watch(watchCtx, cfg.Database.HealthInterval, cfg.Database.HealthTimeout, logger)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			},
			StopFn: func() {
				stopWatch()
				pool.Close()
			},
		})
	}

	grpcServer := grpc.NewServer()
	gameserver.RegisterExpeditionServer(grpcServer, gameserver.NewExpeditionService(manager, logger, recorder))

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			grpcServer.GracefulStop()
		},
	})

	if scripts != nil {
		lifecycle.Add("scripting", &server.FuncService{
			StartFn: func() error { return nil },
			StopFn:  scripts.Close,
		})
	}

	logger.Info("delve server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.Bool("recording", recorder != nil),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// scriptHook forwards discoveries to the theme's on_room_explored hook.
func scriptHook(scripts *scripting.Manager) session.ExploreHook {
	return func(theme dungeon.Theme, d session.Discovery) []string {
		secrets := make([]string, len(d.Secrets))
		copy(secrets, d.Secrets)
		return scripts.RoomNotes(string(theme), scripting.RoomInfo{
			ID:        d.RoomID,
			Kind:      string(d.Kind),
			Depth:     d.Depth,
			Puzzle:    string(d.Puzzle),
			Challenge: string(d.Challenge),
			Lore:      string(d.Lore),
			Secrets:   secrets,
		})
	}
}
