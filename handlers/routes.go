package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SetupRoutes - REST + WebSocket 라우트 등록
func SetupRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("WMS 디스패치 서버가 실행 중입니다.")
	})

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "OK",
			"clients": Manager.GetClientCount(),
			"devices": Devices.GetStatistics(),
			"system":  Manager.SystemInfo(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// 경로 계획
	paths := api.Group("/paths")
	paths.Post("/compile", HandleCompilePath)
	paths.Post("/picking", HandlePlanPicking)

	// 디스패치 / 상태 동기화 수동 실행
	api.Post("/dispatch/run", HandleRunDispatch)
	api.Get("/dispatch/triggers", HandleListTriggers)
	api.Post("/status-sync/run", HandleRunStatusSync)

	api.Get("/tasks", HandleListTasks)
	api.Post("/tasks/:task_id/run", HandleRunTask)
	api.Get("/devices", HandleListDevices)
	api.Get("/maps", HandleListMaps)
	api.Post("/maps/:map_id/topology", HandleImportTopology)

	// 로그 조회
	logsAPI := api.Group("/logs")
	logsAPI.Get("/recent", HandleGetRecentLogs)     // 최근 로그
	logsAPI.Get("/range", HandleGetLogsByTimeRange) // 시간 범위
	logsAPI.Get("/type", HandleGetLogsByEventType)  // 이벤트 타입별
	logsAPI.Get("/stats", HandleGetLogStats)        // 통계

	// WebSocket
	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/websocket/device", websocket.New(HandleDeviceWebSocket))
	app.Get("/websocket/web", websocket.New(HandleWebClientWebSocket))
}
