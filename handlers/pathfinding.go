package handlers

import (
	"fmt"
	"log"
	"wms-backend/algorithms"
	"wms-backend/services"

	"github.com/gofiber/fiber/v2"
)

// CompilePathRequest - pairs 대신 zones(존 시퀀스)를 줘도 된다
type CompilePathRequest struct {
	services.PathRequest
	Zones []string `json:"zones"`
	Write bool     `json:"write"` // true면 path_<device>.csv 작성
}

type CompilePathResponse struct {
	Success  bool       `json:"success"`
	Rows     [][]string `json:"rows,omitempty"`
	Commands int        `json:"commands"`
	Path     string     `json:"path,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// HandleCompilePath - 존 구간 시퀀스 → 명령 행
func HandleCompilePath(c *fiber.Ctx) error {
	var req CompilePathRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CompilePathResponse{
			Success: false,
			Message: "잘못된 요청 형식입니다",
		})
	}
	if len(req.Pairs) == 0 && len(req.Zones) > 1 {
		req.Pairs = algorithms.Pairs(req.Zones)
	}

	log.Printf("📍 경로 컴파일 요청: map=%s device=%s type=%s 구간 %d개",
		req.MapID, req.DeviceID, req.TaskType, len(req.Pairs))

	rows, cmds, err := deps.Planner.CompilePath(req.PathRequest)
	if err != nil {
		log.Printf("❌ 경로 컴파일 실패: %v", err)
		return fail(c, err)
	}

	resp := CompilePathResponse{
		Success:  true,
		Rows:     rows,
		Commands: len(cmds),
		Message:  "경로 컴파일 성공",
	}

	if req.Write {
		if req.DeviceID == "" {
			return fail(c, fmt.Errorf("%w: device_id is required to write a path file", services.ErrValidation))
		}
		path, err := deps.Planner.PlanAndWrite(req.PathRequest)
		if err != nil {
			return fail(c, err)
		}
		resp.Path = path
	}

	log.Printf("✅ 경로 컴파일 성공: 명령 %d개", len(cmds))
	return c.JSON(resp)
}

// HandlePlanPicking - 다중 정차 피킹 경로 파일 작성
func HandlePlanPicking(c *fiber.Ctx) error {
	var req services.PickingPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "잘못된 요청 형식입니다",
		})
	}
	if req.DeviceID == "" || req.MapID == "" {
		return fail(c, fmt.Errorf("%w: device_id and map_id are required", services.ErrValidation))
	}

	path, err := deps.Planner.PlanPicking(req)
	if err != nil {
		log.Printf("❌ 피킹 경로 계획 실패 (%s): %v", req.DeviceID, err)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"path":    path,
	})
}
