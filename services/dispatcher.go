package services

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"
	"wms-backend/models"
)

// Deps - 디스패처 / 상태 동기화가 공유하는 협력 객체
type Deps struct {
	Store    *Store
	Files    *DeviceFiles
	Planner  *PathPlanner
	Finder   DistanceFinder
	Triggers *TriggerQueue
	Events   *EventPublisher
	DataDir  string
	Policy   DispatchPolicy
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DispatchContext - 패스 하나 동안만 유지되는 상태
type DispatchContext struct {
	Now      time.Time
	reserved map[string]bool
}

func newDispatchContext(now time.Time) *DispatchContext {
	return &DispatchContext{Now: now, reserved: make(map[string]bool)}
}

func (c *DispatchContext) Reserve(deviceID string) {
	c.reserved[deviceID] = true
}

func (c *DispatchContext) Reserved(deviceID string) bool {
	return c.reserved[deviceID]
}

// PassSummary - 디스패치 패스 결과
type PassSummary struct {
	TriggersFired   int      `json:"triggers_fired"`
	TasksCreated    []string `json:"tasks_created"`
	ChargingCreated []string `json:"charging_created"`
	Rejected        int      `json:"rejected"`
	Deferred        int      `json:"deferred"`
	PlanFailures    int      `json:"plan_failures"`
	FileErrors      int      `json:"file_errors"`
}

// Dispatcher - 요청 큐를 읽어 작업을 만들고 경로를 계획한다
type Dispatcher struct {
	Deps
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{Deps: deps}
}

// RunDispatchPass - 트리거 → 픽업 큐 → 충전 큐 순으로 한 번 처리
func (d *Dispatcher) RunDispatchPass() PassSummary {
	ctx := newDispatchContext(d.now())
	var sum PassSummary

	sum.TriggersFired = d.fireTriggers(ctx)

	pickups, err := listQueueFiles(d.DataDir, pickupQueueSuffix)
	if err != nil {
		log.Printf("❌ 픽업 큐 목록 조회 실패: %v", err)
	}
	for _, path := range pickups {
		if err := d.processPickupQueue(ctx, path, &sum); err != nil {
			log.Printf("❌ 픽업 큐 처리 실패 (%s): %v", path, err)
			sum.FileErrors++
		}
	}

	chargings, err := listQueueFiles(d.DataDir, chargingQueueSuffix)
	if err != nil {
		log.Printf("❌ 충전 큐 목록 조회 실패: %v", err)
	}
	for _, path := range chargings {
		if err := d.processChargingQueue(ctx, path, &sum); err != nil {
			log.Printf("❌ 충전 큐 처리 실패 (%s): %v", path, err)
			sum.FileErrors++
		}
	}
	return sum
}

// fireTriggers - 도래한 트리거를 디바이스 작업 큐에 기록
func (d *Dispatcher) fireTriggers(ctx *DispatchContext) int {
	fired := 0
	for _, t := range d.Triggers.Due(ctx.Now) {
		if err := d.Files.AppendTaskStatus(t.DeviceID, t.TaskID, t.Status); err != nil {
			log.Printf("❌ 트리거 기록 실패 (%s/%s): %v", t.DeviceID, t.TaskID, err)
			continue
		}
		fired++
		log.Printf("🚀 자동 실행 트리거: %s → %s (%s)", t.TaskID, t.DeviceID, t.Status)
		d.Events.Emit(models.TaskEvent{
			Event:    models.EventTriggerFired,
			TaskID:   t.TaskID,
			DeviceID: t.DeviceID,
			Status:   t.Status,
		})
	}
	return fired
}

func (d *Dispatcher) reject(mapID, reason string, sum *PassSummary) {
	sum.Rejected++
	log.Printf("⚠️ 요청 거부 (map %s): %s", mapID, reason)
	d.Events.Emit(models.TaskEvent{
		Event:   models.EventRequestRejected,
		MapID:   mapID,
		Message: reason,
	})
}

// processPickupQueue - create_task 행마다 작업 생성, 성공한 행만 task_created로 바꿔 저장
func (d *Dispatcher) processPickupQueue(ctx *DispatchContext, path string, sum *PassSummary) error {
	q, err := LoadQueue(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	updated := false
	for _, req := range q.PickupRequests() {
		if req.Action != ActionCreateTask {
			continue
		}
		ok, err := d.handlePickup(ctx, q.MapID, req, sum)
		if err != nil {
			d.reject(q.MapID, err.Error(), sum)
			continue
		}
		if !ok {
			sum.Deferred++
			continue
		}
		q.Set(req.Row, "action", ActionTaskCreated)
		updated = true
	}

	if !updated {
		return nil
	}
	if err := q.Save(); err != nil {
		return err
	}
	log.Printf("💾 %s 갱신 (task_created)", path)
	return nil
}

// handlePickup - (true, nil) 이면 행 소비. (false, nil)은 배정 가능한 디바이스가 없는 경우.
func (d *Dispatcher) handlePickup(ctx *DispatchContext, mapID string, req PickupRequest, sum *PassSummary) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	stopIDs := []string{req.StopID}
	if req.IsFourStop() {
		stopIDs = append(stopIDs, req.CheckStopID, req.DropStopID, req.EndStopID)
	}
	for _, sid := range stopIDs {
		if _, err := d.Store.FindStop(mapID, sid); err != nil {
			return false, err
		}
	}

	targetZone, err := d.stopZone(mapID, req.StopID)
	if err != nil {
		return false, err
	}

	devices, err := d.Store.ListDevices()
	if err != nil {
		return false, fmt.Errorf("디바이스 조회 실패: %w", err)
	}
	busy, err := d.Store.BusyDevices()
	if err != nil {
		return false, fmt.Errorf("작업 조회 실패: %w", err)
	}
	eligible := EligibleDevices(devices, mapID, d.Policy.AssignBatteryThreshold, busy, ctx.reserved)
	if len(eligible) == 0 {
		log.Printf("⚠️ 배정 가능한 디바이스 없음 (map %s, stop %s)", mapID, req.StopID)
		return false, nil
	}
	chosen, _ := SelectNearest(d.Finder, mapID, eligible, targetZone)
	device := chosen.Device

	task, err := d.newPickupTask(mapID, device.DeviceID, req)
	if err != nil {
		return false, err
	}
	if err := d.Store.CreateTask(task); err != nil {
		return false, fmt.Errorf("작업 생성 실패: %w", err)
	}
	ctx.Reserve(device.DeviceID)
	sum.TasksCreated = append(sum.TasksCreated, task.TaskID)
	log.Printf("✅ 작업 생성: %s → %s (stop %s, 거리 %.0fmm)", task.TaskID, device.DeviceID, req.StopID, chosen.Distance)
	d.Events.Emit(models.TaskEvent{
		Event:    models.EventTaskCreated,
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   task.Status,
		DeviceID: device.DeviceID,
		MapID:    mapID,
	})

	// 작업 레코드가 생긴 뒤의 계획 실패는 행을 소비한 채로 로그만 남긴다
	var planPath string
	if req.IsFourStop() {
		planPath, err = d.Planner.PlanStopTour(TourPlanRequest{
			DeviceID:   device.DeviceID,
			MapID:      mapID,
			PickupStop: req.StopID,
			CheckStop:  req.CheckStopID,
			DropStop:   req.DropStopID,
			EndStop:    req.EndStopID,
			EndZone:    req.EndZone,
		})
	} else {
		planPath, err = d.Planner.PlanPicking(PickingPlanRequest{
			DeviceID:    device.DeviceID,
			MapID:       mapID,
			PickupStops: []string{req.StopID},
			DropZone:    req.DropZone,
		})
	}
	if err != nil {
		d.planFailed(task, err, sum)
		return true, nil
	}
	d.planned(ctx, task, planPath)
	return true, nil
}

func (d *Dispatcher) planFailed(task *models.Task, err error, sum *PassSummary) {
	sum.PlanFailures++
	log.Printf("❌ 경로 계획 실패 (%s): %v", task.TaskID, err)
	d.Events.Emit(models.TaskEvent{
		Event:    models.EventPlanFailed,
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   task.Status,
		DeviceID: task.AssignedDeviceID,
		MapID:    task.MapID,
		Message:  err.Error(),
	})
}

// planned - pending_task 기록, picking이면 자동 실행 예약
func (d *Dispatcher) planned(ctx *DispatchContext, task *models.Task, planPath string) {
	d.Events.Emit(models.TaskEvent{
		Event:    models.EventPlanWritten,
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   task.Status,
		DeviceID: task.AssignedDeviceID,
		MapID:    task.MapID,
		Path:     planPath,
	})
	if err := d.Files.AppendTaskStatus(task.AssignedDeviceID, task.TaskID, models.DeviceTaskPending); err != nil {
		log.Printf("❌ 디바이스 작업 큐 기록 실패 (%s): %v", task.AssignedDeviceID, err)
		return
	}
	if task.TaskType == models.TaskTypePicking {
		d.Triggers.Schedule(ctx.Now.Add(d.Policy.AutoRunDelay), task.AssignedDeviceID, task.TaskID, models.DeviceTaskRun)
		log.Printf("⏱️ %s 자동 실행 예약 (%v 후)", task.TaskID, d.Policy.AutoRunDelay)
	}
}

// stopZone - 정차 지점이 속한 엣지의 from_zone
func (d *Dispatcher) stopZone(mapID, stopID string) (string, error) {
	st, err := d.Store.FindStop(mapID, stopID)
	if err != nil {
		return "", err
	}
	conn, err := d.Store.Connection(st.ZoneConnectionID)
	if err != nil {
		return "", fmt.Errorf("%w: stop %s has no connection", ErrValidation, stopID)
	}
	return conn.FromZone, nil
}

func (d *Dispatcher) newPickupTask(mapID, deviceID string, req PickupRequest) (*models.Task, error) {
	taskID, err := d.Store.NextTaskID()
	if err != nil {
		return nil, err
	}
	details := models.TaskDetails{
		PickupMapID: mapID,
		PickupStops: []string{req.StopID},
		DropZone:    req.DropZone,
		Automatic:   true,
	}
	stopIDs := req.StopID
	if req.IsFourStop() {
		details.CheckStop = req.CheckStopID
		details.DropStop = req.DropStopID
		details.EndStop = req.EndStopID
		details.EndZone = req.EndZone
		stopIDs = fmt.Sprintf("%s,%s,%s,%s", req.StopID, req.CheckStopID, req.DropStopID, req.EndStopID)
	}

	task := &models.Task{
		TaskID:            taskID,
		TaskName:          "Auto Pickup - " + req.StopID,
		TaskType:          models.TaskTypePicking,
		Status:            models.TaskStatusPending,
		AssignedDeviceID:  deviceID,
		AssignedDeviceIDs: deviceID,
		Description:       "Automatically created from queue for stop " + req.StopID,
		MapID:             mapID,
		StopIDs:           stopIDs,
		CreatedAt:         d.now(),
	}
	if err := task.SetDetails(details); err != nil {
		return nil, err
	}
	return task, nil
}

// processChargingQueue - 충전 요청 처리 (예전 스키마는 먼저 마이그레이션)
func (d *Dispatcher) processChargingQueue(ctx *DispatchContext, path string, sum *PassSummary) error {
	q, err := LoadQueue(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(q.Header) == 0 {
		return nil
	}
	migrated, err := q.MigrateChargingSchema()
	if err != nil {
		return err
	}

	updated := migrated
	for _, req := range q.ChargingRequests() {
		if req.Action != ActionCreateTask {
			continue
		}
		ok, err := d.handleCharging(ctx, q.MapID, req, sum)
		if err != nil {
			d.reject(q.MapID, err.Error(), sum)
			continue
		}
		if !ok {
			sum.Deferred++
			continue
		}
		q.Set(req.Row, "action", ActionTaskCreated)
		updated = true
	}

	if !updated {
		return nil
	}
	return q.Save()
}

func (d *Dispatcher) handleCharging(ctx *DispatchContext, mapID string, req ChargingRequest, sum *PassSummary) (bool, error) {
	busy, err := d.Store.BusyDevices()
	if err != nil {
		return false, fmt.Errorf("작업 조회 실패: %w", err)
	}

	var device models.Device
	if req.DeviceID != "" {
		device, err = d.Store.GetDevice(req.DeviceID)
		if err != nil {
			return false, err
		}
		if busy[device.DeviceID] || ctx.Reserved(device.DeviceID) {
			log.Printf("⚠️ %s 는 진행 중인 작업이 있어 충전 요청 보류", device.DeviceID)
			return false, nil
		}
	} else {
		devices, err := d.Store.ListDevices()
		if err != nil {
			return false, fmt.Errorf("디바이스 조회 실패: %w", err)
		}
		var candidates []models.Device
		for _, dev := range devices {
			if dev.CurrentMap != mapID || dev.BatteryLevel >= d.Policy.ChargingBatteryThreshold {
				continue
			}
			if busy[dev.DeviceID] || ctx.Reserved(dev.DeviceID) {
				continue
			}
			candidates = append(candidates, dev)
		}
		var ok bool
		if device, ok = LowestBattery(candidates); !ok {
			log.Printf("⚠️ 충전 대상 디바이스 없음 (map %s)", mapID)
			return false, nil
		}
	}

	zone := req.ChargingZone
	if zone == "" {
		zone, err = chooseChargingZone(d.Store, mapID)
		if err != nil {
			return false, err
		}
	}

	taskID, err := d.Store.NextTaskID()
	if err != nil {
		return false, err
	}
	task := &models.Task{
		TaskID:            taskID,
		TaskName:          "Auto Charging - " + device.DeviceID,
		TaskType:          models.TaskTypeCharging,
		Status:            models.TaskStatusPending,
		AssignedDeviceID:  device.DeviceID,
		AssignedDeviceIDs: device.DeviceID,
		Description:       "Automatically created charging task for zone " + zone,
		MapID:             mapID,
		CreatedAt:         ctx.Now,
	}
	if err := task.SetDetails(models.TaskDetails{ChargingZone: zone, Automatic: true}); err != nil {
		return false, err
	}
	if err := d.Store.CreateTask(task); err != nil {
		return false, fmt.Errorf("작업 생성 실패: %w", err)
	}
	ctx.Reserve(device.DeviceID)
	sum.ChargingCreated = append(sum.ChargingCreated, task.TaskID)

	if err := d.Store.SetChargingZoneOccupancy(mapID, zone, device.DeviceID, true); err != nil {
		log.Printf("⚠️ 충전 존 점유 표시 실패 (%s): %v", zone, err)
	}
	log.Printf("🔋 충전 작업 생성: %s → %s (zone %s, 배터리 %.0f%%)", task.TaskID, device.DeviceID, zone, device.BatteryLevel)
	d.Events.Emit(models.TaskEvent{
		Event:    models.EventTaskCreated,
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   task.Status,
		DeviceID: device.DeviceID,
		MapID:    mapID,
		Zone:     zone,
	})

	planPath, err := d.Planner.PlanCharging(device.DeviceID, mapID, zone, "", "")
	if err != nil {
		d.planFailed(task, err, sum)
		return true, nil
	}
	d.planned(ctx, task, planPath)
	return true, nil
}

// chooseChargingZone - 비어 있는 첫 충전 존, 없으면 첫 번째 존
func chooseChargingZone(store *Store, mapID string) (string, error) {
	zones, err := store.ChargingZones(mapID)
	if err != nil {
		return "", err
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w: map %s", ErrNoChargingZone, mapID)
	}
	for _, z := range zones {
		if !z.Occupied {
			return z.Zone, nil
		}
	}
	return zones[0].Zone, nil
}
