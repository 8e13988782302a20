package handlers

import (
	"errors"
	"log"
	"sync"
	"time"
	"wms-backend/algorithms"
	"wms-backend/services"

	"github.com/gofiber/fiber/v2"
)

// 핸들러가 공유하는 서비스 (main에서 InitServices로 주입)
var (
	deps       services.Deps
	dispatcher *services.Dispatcher
	reconciler *services.Reconciler

	// 폴링 루프와 HTTP 수동 실행이 같은 락을 쓴다
	passMu sync.Mutex
)

// InitServices - 서비스 주입
func InitServices(d services.Deps) {
	deps = d
	dispatcher = services.NewDispatcher(d)
	reconciler = services.NewReconciler(d)
	log.Println("✅ 디스패처 / 상태 동기화 준비 완료")
}

// CycleSummary - 폴링 한 주기 결과
type CycleSummary struct {
	Dispatch services.PassSummary `json:"dispatch"`
	Sync     services.SyncSummary `json:"sync"`
	Elapsed  string               `json:"elapsed"`
}

// RunCycle - 디스패치 패스 후 상태 동기화 패스
func RunCycle() CycleSummary {
	passMu.Lock()
	defer passMu.Unlock()

	start := time.Now()
	sum := CycleSummary{
		Dispatch: dispatcher.RunDispatchPass(),
		Sync:     reconciler.RunStatusSyncPass(),
	}
	sum.Elapsed = time.Since(start).String()
	return sum
}

// errorStatus - 서비스 오류 → HTTP 상태 코드
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateStop),
		errors.Is(err, services.ErrUnknownTaskType):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrStopNotFound),
		errors.Is(err, services.ErrDeviceNotFound),
		errors.Is(err, services.ErrMapNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnreachable),
		errors.Is(err, services.ErrNoChargingZone),
		errors.Is(err, algorithms.ErrNoPickupStops),
		errors.Is(err, algorithms.ErrEmptyRoute):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
