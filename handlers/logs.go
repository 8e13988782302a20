package handlers

import (
	"strconv"
	"time"
	"wms-backend/services"

	"github.com/gofiber/fiber/v2"
)

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}

// queryTime - RFC3339, 비어 있으면 def
func queryTime(c *fiber.Ctx, key string, def time.Time) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// HandleGetRecentLogs - 최근 디스패치 로그 (device_id 없으면 전체)
func HandleGetRecentLogs(c *fiber.Ctx) error {
	deviceID := c.Query("device_id")

	logs, err := services.GetRecentLogs(deviceID, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"device_id": deviceID,
		"count":     len(logs),
		"logs":      logs,
	})
}

// HandleGetLogsByTimeRange - 시간 범위로 로그 조회 (기본: 최근 24시간)
func HandleGetLogsByTimeRange(c *fiber.Ctx) error {
	deviceID := c.Query("device_id")
	now := time.Now()

	start, ok := queryTime(c, "start", now.Add(-24*time.Hour))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid start time format (use RFC3339)",
		})
	}
	end, ok := queryTime(c, "end", now)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid end time format (use RFC3339)",
		})
	}

	logs, err := services.GetLogsByTimeRange(deviceID, start, end, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"time_range": fiber.Map{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"logs": logs,
	})
}

// HandleGetLogsByEventType - task_created / plan_failed / trigger_fired ...
func HandleGetLogsByEventType(c *fiber.Ctx) error {
	eventType := c.Query("event_type")
	if eventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "event_type parameter is required",
		})
	}

	logs, err := services.GetLogsByEventType(c.Query("device_id"), eventType, queryLimit(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(logs),
		"event_type": eventType,
		"logs":       logs,
	})
}

// HandleGetLogStats - 이벤트 타입별 건수
func HandleGetLogStats(c *fiber.Ctx) error {
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	stats, err := services.GetLogStats(c.Query("device_id"), hours)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
