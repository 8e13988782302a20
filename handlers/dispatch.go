package handlers

import (
	"fmt"
	"log"
	"strconv"
	"wms-backend/models"
	"wms-backend/services"

	"github.com/gofiber/fiber/v2"
)

// HandleRunDispatch - 디스패치 패스 수동 실행
func HandleRunDispatch(c *fiber.Ctx) error {
	passMu.Lock()
	sum := dispatcher.RunDispatchPass()
	passMu.Unlock()

	return c.JSON(fiber.Map{
		"success": true,
		"summary": sum,
	})
}

// HandleRunStatusSync - 상태 동기화 패스 수동 실행
func HandleRunStatusSync(c *fiber.Ctx) error {
	passMu.Lock()
	sum := reconciler.RunStatusSyncPass()
	passMu.Unlock()

	return c.JSON(fiber.Map{
		"success": true,
		"summary": sum,
	})
}

// HandleListTasks - 최근 작업 목록
func HandleListTasks(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	tasks, err := deps.Store.ListTasks(limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(tasks),
		"tasks":   tasks,
	})
}

// HandleListDevices - 등록된 디바이스 (+ 실시간 연결 여부)
func HandleListDevices(c *fiber.Ctx) error {
	devices, err := deps.Store.ListDevices()
	if err != nil {
		return fail(c, err)
	}
	type deviceView struct {
		models.Device
		Connected bool `json:"connected"`
	}
	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceView{Device: d, Connected: Devices.IsAlive(d.DeviceID, deviceTimeout)})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(out),
		"devices": out,
	})
}

// HandleListTriggers - 예약된 자동 실행 트리거
func HandleListTriggers(c *fiber.Ctx) error {
	pending := deps.Triggers.Pending()
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(pending),
		"triggers": pending,
	})
}

// HandleListMaps - 등록된 맵 목록
func HandleListMaps(c *fiber.Ctx) error {
	maps, err := deps.Store.ListMaps()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(maps),
		"maps":    maps,
	})
}

// HandleImportTopology - 맵 구성 일괄 교체
func HandleImportTopology(c *fiber.Ctx) error {
	var topo models.Topology
	if err := c.BodyParser(&topo); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "잘못된 요청 형식입니다",
		})
	}
	mapID := c.Params("map_id")
	if topo.Map.MapID == "" {
		topo.Map.MapID = mapID
	}
	if topo.Map.MapID != mapID {
		return fail(c, fmt.Errorf("%w: map_id mismatch (%s != %s)", services.ErrValidation, topo.Map.MapID, mapID))
	}

	if err := deps.Store.ImportTopology(topo); err != nil {
		log.Printf("❌ 맵 import 실패 (%s): %v", mapID, err)
		return fail(c, err)
	}
	log.Printf("🗺️ 맵 import: %s (연결 %d개, 정차 지점 %d개)", mapID, len(topo.Connections), len(topo.Stops))
	return c.JSON(fiber.Map{
		"success":     true,
		"map_id":      mapID,
		"connections": len(topo.Connections),
		"stops":       len(topo.Stops),
		"racks":       len(topo.Racks),
	})
}

// HandleRunTask - pending 작업에 run_task 기록 (자동 실행 예약은 취소)
func HandleRunTask(c *fiber.Ctx) error {
	taskID := c.Params("task_id")
	task, err := deps.Store.GetTask(taskID)
	if err != nil {
		return fail(c, err)
	}
	if task.Status != models.TaskStatusPending || task.AssignedDeviceID == "" {
		return fail(c, fmt.Errorf("%w: task %s is %s", services.ErrValidation, taskID, task.Status))
	}

	cancelled := deps.Triggers.Cancel(taskID)
	if err := deps.Files.AppendTaskStatus(task.AssignedDeviceID, taskID, models.DeviceTaskRun); err != nil {
		return fail(c, err)
	}
	deps.Events.Emit(models.TaskEvent{
		Event:    models.EventTriggerFired,
		TaskID:   taskID,
		TaskType: task.TaskType,
		DeviceID: task.AssignedDeviceID,
		MapID:    task.MapID,
		Status:   models.DeviceTaskRun,
		Message:  "manual run",
	})
	return c.JSON(fiber.Map{
		"success":            true,
		"task_id":            taskID,
		"device_id":          task.AssignedDeviceID,
		"cancelled_triggers": cancelled,
	})
}
