package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/hikari-games/guildwar/server/api/rest"
	"github.com/hikari-games/guildwar/server/audit"
	"github.com/hikari-games/guildwar/server/cache"
	"github.com/hikari-games/guildwar/server/config"
	dbadapter "github.com/hikari-games/guildwar/server/db"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
	mw "github.com/hikari-games/guildwar/server/middleware"
	"github.com/hikari-games/guildwar/server/model"
	"github.com/hikari-games/guildwar/server/notify"
	"github.com/hikari-games/guildwar/server/scheduler"
	"github.com/hikari-games/guildwar/server/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(nil, logger)
	defer sched.Stop()

	// ---- Engine ----
	gateway := notify.NewGateway(pubsub, logger)
	st := store.New(db, logger)
	guildSvc := guild.NewService(cfg.Guild, st, gateway, gateway, nil, logger)
	warCoord := war.NewCoordinator(cfg.War, guildSvc, st, sched, c, gateway, logger)
	questGen := quest.NewGenerator(cfg.Quest, guildSvc, st, nil, gateway, nil, logger)
	warCoord.SetQuestProgress(questGen)

	// ---- Recovery ----
	// Guilds first (wars and quests reference them), then quest sets, then
	// wars so phase timers are re-armed against live guild state.
	ctx := context.Background()
	if err := st.LoadGuilds(ctx, func(g *guild.Guild) {
		if err := guildSvc.Restore(g); err != nil {
			logger.Error("guild restore failed", zap.String("guild_id", g.ID), zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("load guilds: %v", err)
	}
	if err := st.LoadQuests(ctx, questGen.Restore); err != nil {
		log.Fatalf("load quests: %v", err)
	}
	if err := st.LoadWars(ctx, func(w *war.War) {
		warCoord.Recover(ctx, w)
	}); err != nil {
		log.Fatalf("load wars: %v", err)
	}
	logger.Info("engine state recovered",
		zap.Int("guilds", guildSvc.Count()))

	// ---- Periodic Tasks ----
	sched.AddTicker("quest_sweep", cfg.Quest.SweepInterval, func() {
		questGen.Sweep(context.Background())
	})
	sched.AddTicker("weekly_contribution_reset", 7*24*time.Hour, func() {
		guildSvc.ResetWeeklyContributions(context.Background())
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	guildH := apirest.NewGuildHandler(guildSvc, questGen, warCoord, auditSvc, logger)
	warH := apirest.NewWarHandler(guildSvc, warCoord, auditSvc, logger)
	adminH := apirest.NewAdminHandler(db, guildSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		guildsG := api.Group("/guilds")
		guildsG.Use(mw.Auth(cfg.Security, c))
		guildsG.POST("", guildH.Create)
		guildsG.GET("", guildH.Search)
		guildsG.GET("/:id", guildH.Detail)
		guildsG.POST("/:id/join", guildH.Join)
		guildsG.POST("/leave", guildH.Leave)
		guildsG.DELETE("/:id/members/:pid", guildH.Kick)
		guildsG.PUT("/:id/members/:pid/promote", guildH.Promote)
		guildsG.POST("/:id/contribute", guildH.Contribute)
		guildsG.PUT("/:id/settings", guildH.UpdateSettings)
		guildsG.POST("/:id/perks/:perk", guildH.UpgradePerk)
		guildsG.GET("/:id/quests", guildH.Quests)
		guildsG.POST("/:id/quests/progress", guildH.QuestProgress)

		api.GET("/perks", mw.Auth(cfg.Security, c), guildH.Perks)

		warsG := api.Group("/wars")
		warsG.Use(mw.Auth(cfg.Security, c))
		warsG.POST("", warH.Declare)
		warsG.GET("/current", warH.Current)
		warsG.GET("/:id", warH.Get)
		warsG.POST("/:id/actions", warH.Participate)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
