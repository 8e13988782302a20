package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	"wms-backend/handlers"
	"wms-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env 파일을 찾을 수 없습니다.")
	}

	cfg, err := services.LoadConfig()
	if err != nil {
		log.Fatalf("❌ 설정 로드 실패: %v", err)
	}

	if err := services.InitDatabase(cfg); err != nil {
		log.Fatalf("❌ DB 초기화 실패: %v", err)
	}

	services.InitLogging(services.GetDB(), cfg.LogFlushSize, cfg.LogFlushInterval)
	defer services.StopLogging() // 종료 시 남은 로그 저장

	store := services.NewStore(services.GetDB())
	files := services.NewDeviceFiles(cfg.DeviceLogsDir)

	events := services.NewEventPublisher()
	events.SetBroadcast(handlers.Manager.BroadcastMessage)
	if cfg.NATSURL != "" {
		if err := events.ConnectNATS(cfg.NATSURL); err != nil {
			log.Printf("⚠️ %v (NATS 없이 계속)", err)
		}
	}
	defer events.Close()

	if cfg.SeedDemoMap {
		if err := services.NewMapGenerator().SeedDemo(store, services.DefaultGridOptions()); err != nil {
			log.Printf("⚠️ 데모 맵 생성 실패: %v", err)
		}
	}

	handlers.InitServices(services.Deps{
		Store:    store,
		Files:    files,
		Planner:  services.NewPathPlanner(store, files),
		Finder:   services.NewPathFinder(store),
		Triggers: services.NewTriggerQueue(),
		Events:   events,
		DataDir:  cfg.DataDir,
		Policy:   cfg.Policy,
	})

	go handlers.Manager.Start()

	if cfg.SimulateDevices {
		sim := services.NewDeviceSimulator(store, files, time.Second, handlers.Manager.BroadcastMessage)
		sim.Start()
		defer sim.Stop()
	}

	// 폴링 루프: 디스패치 패스 → 상태 동기화 패스
	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ticker := time.NewTicker(cfg.Policy.PollInterval)
		defer ticker.Stop()
		log.Printf("⏱️ 폴링 루프 시작 (주기 %v)", cfg.Policy.PollInterval)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sum := handlers.RunCycle()
				if len(sum.Dispatch.TasksCreated) > 0 || len(sum.Dispatch.ChargingCreated) > 0 || len(sum.Sync.Completed) > 0 {
					log.Printf("🔄 주기 결과: 생성 %v / 충전 %v / 완료 %v",
						sum.Dispatch.TasksCreated, sum.Dispatch.ChargingCreated, sum.Sync.Completed)
				}
			}
		}
	}()

	app := fiber.New()

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173, http://localhost:3000",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	handlers.SetupRoutes(app)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("🛑 종료 신호 수신")
		close(stop)
		<-loopDone
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ 서버 종료 실패: %v", err)
		}
	}()

	log.Printf("🚀 서버 시작: http://localhost%s", cfg.HTTPAddr)
	log.Printf("📡 WebSocket: ws://localhost%s/websocket/web", cfg.HTTPAddr)
	log.Printf("🤖 디바이스 WebSocket: ws://localhost%s/websocket/device?device_id=...", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Printf("❌ 서버 종료: %v", err)
	}
}
