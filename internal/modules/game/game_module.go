package game

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	custommiddleware "xiuxian-server/internal/middleware"
	"xiuxian-server/internal/modules/game/handler"
	"xiuxian-server/internal/modules/game/service"
	"xiuxian-server/internal/modules/game/tasks"
	pkgconfig "xiuxian-server/internal/pkg/config"
	"xiuxian-server/internal/pkg/i18n"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/pkg/metrics"
	natscheck "xiuxian-server/internal/pkg/nats"
	"xiuxian-server/internal/pkg/notify"
	redisClient "xiuxian-server/internal/pkg/redis"
	"xiuxian-server/internal/pkg/response"
	"xiuxian-server/internal/pkg/security"
	"xiuxian-server/internal/pkg/trace"
	"xiuxian-server/internal/pkg/validation"
	"xiuxian-server/internal/pkg/validator"

	"github.com/labstack/echo/v4"
	"github.com/liangdas/mqant/conf"
	"github.com/liangdas/mqant/module"
	basemodule "github.com/liangdas/mqant/module/base"
	"github.com/liangdas/mqant/server"
	_ "github.com/lib/pq"
)

type GameModule struct {
	basemodule.BaseModule
	db                 *sql.DB
	redis              *redisClient.Client
	httpServer         *echo.Echo
	serviceContainer   *service.ServiceContainer
	combatHandler      *handler.CombatHandler
	dungeonRoomHandler *handler.DungeonRoomHandler
	roomRPCHandler     *handler.RoomRPCHandler
	roomCleanupTask    *tasks.RoomCleanupTask
	formationSweepTask *tasks.FormationSweepTask
	natsHealth         *natscheck.HealthChecker
	respWriter         response.Writer
}

// Module 创建游戏模块实例
func Module() module.Module {
	return &GameModule{}
}

// GetType returns module type
func (m *GameModule) GetType() string {
	return "game"
}

// Version returns module version
func (m *GameModule) Version() string {
	return "1.0.0"
}

// OnAppConfigurationLoaded 当App初始化时调用
func (m *GameModule) OnAppConfigurationLoaded(app module.App) {
	m.BaseModule.OnAppConfigurationLoaded(app)
}

// OnInit module initialization
func (m *GameModule) OnInit(app module.App, settings *conf.ModuleSettings) {
	metrics.SetServiceName("game")
	// 按照 mqant 官方推荐：在每个模块的 OnInit 中配置服务注册参数
	// TTL = 30s, 心跳间隔 = 15s (TTL 必须大于心跳间隔)
	m.BaseModule.OnInit(m, app, settings,
		server.RegisterInterval(15*time.Second),
		server.RegisterTTL(30*time.Second),
	)

	// 1. Initialize database connection
	if err := m.initDatabase(settings); err != nil {
		panic(fmt.Sprintf("Failed to initialize database: %v", err))
	}

	// 2. Initialize Redis (大厅列表缓存，允许缺席)
	m.initRedis()

	// 3. Initialize response writer
	m.initResponseWriter()

	// 4. Initialize HTTP server
	m.initHTTPServer()

	// 5. Initialize Services and Handlers
	m.initServicesAndHandlers()

	// 6. Setup routes
	m.setupRoutes()

	// 7. Setup RPC methods
	m.setupRPCMethods()

	// 8. Start cron tasks
	m.startCronTasks()

	// 9. Start NATS connection health monitoring
	if conn := notify.NatsConn(); conn != nil {
		m.natsHealth = natscheck.NewHealthChecker(conn, 10*time.Second)
		go m.natsHealth.Start(context.Background())
	}

	// 10. Start HTTP server in background
	go m.startHTTPServer(settings)

	m.GetServer().Options()
}

// initDatabase initializes database connection
func (m *GameModule) initDatabase(settings *conf.ModuleSettings) error {
	// 环境变量优先，其次配置文件
	var configURL string
	if settings != nil && settings.Settings != nil {
		configURL, _ = settings.Settings["database_url"].(string)
	}
	dbURL := pkgconfig.GetDatabaseURL("XIUXIAN_GAME_DATABASE_URL", configURL)

	if dbURL == "" {
		return fmt.Errorf("XIUXIAN_GAME_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	m.db = db
	fmt.Println("[Game Module] Database initialized successfully")

	// 启动数据库连接池监控
	go m.startDBPoolMonitoring(db)

	return nil
}

// initRedis initializes Redis client for lobby caching
// Redis 不可用时只记告警，大厅列表退化为直查数据库。
func (m *GameModule) initRedis() {
	host := pkgconfig.GetEnvOrDefault("REDIS_HOST", "localhost")

	port := 6379
	if portStr := os.Getenv("REDIS_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	password := os.Getenv("REDIS_PASSWORD")

	dbIndex := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if d, err := strconv.Atoi(dbStr); err == nil {
			dbIndex = d
		}
	}

	client, err := redisClient.NewClient(redisClient.Config{
		Host:     host,
		Port:     port,
		Password: password,
		DB:       dbIndex,
	}, metrics.GetServiceName())
	if err != nil {
		fmt.Printf("[Game Module] Redis unavailable, lobby cache disabled: %v\n", err)
		return
	}

	m.redis = client
	fmt.Printf("[Game Module] Redis connected successfully (Host: %s:%d, DB: %d)\n", host, port, dbIndex)
}

// initResponseWriter initializes response writer
func (m *GameModule) initResponseWriter() {
	environment := pkgconfig.GetEnvOrDefault("ENVIRONMENT", "development")

	// 使用全局 logger
	logger := log.GetLogger()
	m.respWriter = response.NewResponseHandler(logger, environment)
	fmt.Println("[Game Module] Response writer initialized")
}

// initHTTPServer initializes HTTP server
func (m *GameModule) initHTTPServer() {
	m.httpServer = echo.New()

	// Hide banner
	m.httpServer.HideBanner = true
	m.httpServer.HidePort = true

	// Register validator
	m.httpServer.Validator = validator.New()

	// 获取全局 logger
	logger := log.GetLogger()

	// 获取环境变量
	environment := pkgconfig.GetEnvOrDefault("ENVIRONMENT", "development")

	// ========== 中间件配置（顺序很重要！） ==========

	// 1. TraceID 中间件 - 最先执行，生成或提取 TraceID
	m.httpServer.Use(trace.Middleware())

	// 2. Metrics 中间件 - 记录 HTTP 方法到 context（用于 Prometheus）
	m.httpServer.Use(metrics.Middleware())

	// 3. i18n 中间件 - 语言检测和设置
	m.httpServer.Use(i18n.Middleware())

	// 4. Logging 中间件 - 记录请求日志（依赖 TraceID）
	loggingConfig := custommiddleware.DefaultLoggingConfig()
	if environment == "development" {
		// 开发环境启用详细日志
		loggingConfig.DetailedLog = true
		loggingConfig.LogRequestBody = true // 可以记录请求体
	}
	m.httpServer.Use(custommiddleware.LoggingMiddlewareWithConfig(logger, loggingConfig))

	// 5. Recovery 中间件 - 捕获 panic
	m.httpServer.Use(custommiddleware.RecoveryMiddleware(m.respWriter, logger))

	// 6. Error 中间件 - 统一错误处理
	m.httpServer.Use(custommiddleware.ErrorMiddleware(m.respWriter, logger))

	// 7. CORS 与安全头中间件
	m.httpServer.Use(security.CORSMiddleware())
	m.httpServer.Use(security.SecurityHeadersMiddleware())

	// 8. 限流中间件 - 按客户端 IP 限流
	m.httpServer.Use(custommiddleware.RateLimitMiddleware())

	fmt.Println("[Game Module] HTTP middlewares configured:")
	fmt.Println("  ✓ TraceID (自动生成追踪ID)")
	fmt.Println("  ✓ Metrics (Prometheus 指标收集)")
	fmt.Println("  ✓ i18n (国际化支持)")
	fmt.Printf("  ✓ Logging (日志记录 - %s)\n", environment)
	fmt.Println("  ✓ Recovery (Panic 恢复)")
	fmt.Println("  ✓ Error (统一错误处理)")
	fmt.Println("  ✓ CORS + Security Headers (跨域与安全头)")
	fmt.Println("  ✓ RateLimit (IP 限流)")
}

// initServicesAndHandlers initializes services and HTTP handlers
func (m *GameModule) initServicesAndHandlers() {
	// 创建服务容器（统一管理所有 Repository 和 Service）
	m.serviceContainer = service.NewServiceContainer(m.db)

	// 初始化 HTTP Handlers（从容器中获取需要的服务）
	m.combatHandler = handler.NewCombatHandler(m.serviceContainer, m.respWriter)
	m.dungeonRoomHandler = handler.NewDungeonRoomHandler(m.serviceContainer, m.redis, m.respWriter)
	m.roomRPCHandler = handler.NewRoomRPCHandler(m.serviceContainer, m.db)

	fmt.Println("[Game Module] Handlers initialized successfully")
}

// startCronTasks starts cron scheduled tasks
func (m *GameModule) startCronTasks() {
	logger := log.GetLogger()

	// 超时未开荒的等待房间自动解散
	m.roomCleanupTask = tasks.NewRoomCleanupTask(
		m.serviceContainer.GetDungeonRoomRepo(),
		m.serviceContainer.GetDungeonRoomService(),
		logger,
	)
	m.roomCleanupTask.Start()

	// 兜底清扫长期离线角色身上的过期阵法
	m.formationSweepTask = tasks.NewFormationSweepTask(
		m.serviceContainer.GetCharacterRepo(),
		logger,
	)
	m.formationSweepTask.Start()

	fmt.Println("[Game Module] Cron tasks started successfully:")
	fmt.Println("  ✓ Room Cleanup Task (每10分钟)")
	fmt.Println("  ✓ Formation Sweep Task (每30分钟)")
}

// setupRoutes sets up HTTP routes
func (m *GameModule) setupRoutes() {
	// API v1 group
	v1 := m.httpServer.Group("/api/v1")

	// Game routes
	// 路径参数统一做 UUID 白名单校验，拦截明显非法的 ID
	game := v1.Group("/game", validation.UUIDValidationMiddleware(m.respWriter))
	{
		// 战斗路由
		combat := game.Group("/combat")
		{
			combat.POST("/monster", m.combatHandler.ChallengeMonster)            // 挑战木人桩/塔层/药园魔物
			combat.POST("/pvp", m.combatHandler.ChallengePvP)                    // 发起切磋
			combat.GET("/reports/:battle_id", m.combatHandler.GetBattleReport)   // 查询战报
		}

		// 秘境房间路由
		rooms := game.Group("/rooms")
		{
			rooms.GET("", m.dungeonRoomHandler.ListRooms)    // 大厅房间列表
			rooms.POST("", m.dungeonRoomHandler.CreateRoom)  // 创建房间
			rooms.GET("/:room_id", m.dungeonRoomHandler.GetRoom)
			rooms.GET("/:room_id/record", m.dungeonRoomHandler.GetRoomRecord) // 开荒记录

			rooms.POST("/:room_id/join", m.dungeonRoomHandler.JoinRoom)           // 加入房间
			rooms.POST("/:room_id/leave", m.dungeonRoomHandler.LeaveRoom)         // 离开房间
			rooms.POST("/:room_id/kick", m.dungeonRoomHandler.KickMember)         // 踢出成员
			rooms.POST("/:room_id/start", m.dungeonRoomHandler.StartDungeon)      // 开启开荒
			rooms.POST("/:room_id/path", m.dungeonRoomHandler.SelectPath)         // 选择分支路线
			rooms.POST("/:room_id/challenge", m.dungeonRoomHandler.ChallengeStage) // 挑战当前关卡
			rooms.POST("/:room_id/disband", m.dungeonRoomHandler.DisbandRoom)     // 解散房间
		}

		// 角色维度查询
		game.GET("/characters/:character_id/records", m.dungeonRoomHandler.ListSettlements) // 开荒结算历史
	}

	// Health check
	m.httpServer.GET("/health", func(c echo.Context) error {
		natsStatus := "unknown"
		if m.natsHealth != nil {
			if m.natsHealth.IsHealthy() {
				natsStatus = "ok"
			} else {
				natsStatus = "down"
			}
		}
		return c.JSON(200, map[string]interface{}{
			"status": "ok",
			"module": "game",
			"nats":   natsStatus,
		})
	})

	// Prometheus metrics endpoint
	m.httpServer.GET("/metrics", metrics.EchoHandler())

	fmt.Println("[Game Module] Routes configured successfully")
	fmt.Println("[Game Module] Game API routes: /api/v1/game/combat/* /api/v1/game/rooms/*")
	fmt.Println("[Game Module] Prometheus metrics available at http://localhost:8072/metrics")
}

// setupRPCMethods 注册 RPC 方法
// 供运营后台等其他模块调用
func (m *GameModule) setupRPCMethods() {
	m.GetServer().RegisterGO("GetRoomList", m.roomRPCHandler.GetRoomList)
	m.GetServer().RegisterGO("GetRoomDetail", m.roomRPCHandler.GetRoomDetail)
	m.GetServer().RegisterGO("ForceDisbandRoom", m.roomRPCHandler.ForceDisbandRoom)

	fmt.Println("[Game Module] RPC methods registered:")
	fmt.Println("  ✓ GetRoomList - 获取房间列表")
	fmt.Println("  ✓ GetRoomDetail - 获取房间详情")
	fmt.Println("  ✓ ForceDisbandRoom - 强制解散房间")
}

// startDBPoolMonitoring 启动数据库连接池监控
// 每 30 秒报告一次连接池统计信息到 Prometheus
func (m *GameModule) startDBPoolMonitoring(db *sql.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := db.Stats()

		// 记录数据库连接池指标
		metrics.DefaultResourceMetrics.RecordDBPoolStats(
			metrics.GetServiceName(),
			"postgres",            // 数据库名称
			stats.OpenConnections, // 当前打开的连接数
			stats.InUse,           // 正在使用的连接数
			stats.Idle,            // 空闲连接数
			25,                    // 最大连接数（与 SetMaxOpenConns 保持一致）
			stats.WaitCount,       // 等待连接的总次数
			stats.WaitDuration,    // 等待连接的总时长
		)
	}
}

// startHTTPServer starts HTTP server
func (m *GameModule) startHTTPServer(settings *conf.ModuleSettings) {
	// Read HTTP port from environment variable first
	port := os.Getenv("GAME_HTTP_PORT")
	if port == "" {
		// Fallback to config file
		if settings != nil && settings.Settings != nil {
			portInterface, ok := settings.Settings["http_port"]
			if ok {
				port, _ = portInterface.(string)
			}
		}
	}

	if port == "" {
		port = "8072" // Default port
	}

	fmt.Printf("[Game Module] Starting HTTP server on port %s\n", port)

	if err := m.httpServer.Start(":" + port); err != nil {
		fmt.Printf("[Game Module] HTTP server error: %v\n", err)
	}
}

// Run module run
func (m *GameModule) Run(closeSig chan bool) {
	fmt.Println("[Game Module] Started successfully")
	<-closeSig
}

// OnDestroy module destroy
func (m *GameModule) OnDestroy() {
	// Stop cron tasks
	if m.roomCleanupTask != nil {
		m.roomCleanupTask.Stop()
	}
	if m.formationSweepTask != nil {
		m.formationSweepTask.Stop()
	}

	// Stop NATS health checker
	if m.natsHealth != nil {
		m.natsHealth.Stop()
	}

	// Close HTTP server
	if m.httpServer != nil {
		if err := m.httpServer.Close(); err != nil {
			fmt.Printf("[Game Module] Failed to close HTTP server: %v\n", err)
		} else {
			fmt.Println("[Game Module] HTTP server closed")
		}
	}

	// Close database connection
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			fmt.Printf("[Game Module] Failed to close database: %v\n", err)
		} else {
			fmt.Println("[Game Module] Database connection closed")
		}
	}

	m.BaseModule.OnDestroy()
}
