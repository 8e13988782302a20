package services

import (
	"log"
	"strings"
	"wms-backend/models"
)

// SyncSummary - 상태 동기화 패스 결과
type SyncSummary struct {
	Started           []string `json:"started"`
	Completed         []string `json:"completed"`
	ChargingRequested []string `json:"charging_requested"` // device_id
}

// Reconciler - 디바이스 피드백으로 작업 상태를 진행시키고 충전 요청을 만든다
type Reconciler struct {
	Deps
}

func NewReconciler(deps Deps) *Reconciler {
	return &Reconciler{Deps: deps}
}

// RunStatusSyncPass - 활성 작업마다 디바이스의 최신 실행 상태를 반영
func (r *Reconciler) RunStatusSyncPass() SyncSummary {
	var sum SyncSummary

	tasks, err := r.Store.ActiveTasks()
	if err != nil {
		log.Printf("❌ 활성 작업 조회 실패: %v", err)
		return sum
	}

	for i := range tasks {
		task := &tasks[i]
		deviceID := task.AssignedDeviceID
		if deviceID == "" || task.TaskID == "" {
			continue
		}

		feedback, err := r.Files.LatestTaskStatus(deviceID, task.TaskID)
		if err != nil {
			log.Printf("⚠️ 디바이스 작업 큐 읽기 실패 (%s): %v", deviceID, err)
			continue
		}
		feedback = strings.ToLower(feedback)
		status := strings.ToLower(task.Status)

		switch {
		case status == models.TaskStatusPending && feedback == models.DeviceTaskExecuting:
			r.start(task)
			sum.Started = append(sum.Started, task.TaskID)

		case (status == models.TaskStatusRunning || status == models.TaskStatusProcessing) && feedback == models.DeviceTaskCompleted:
			r.complete(task)
			sum.Completed = append(sum.Completed, task.TaskID)
			if id, ok := r.afterCompletion(task); ok {
				sum.ChargingRequested = append(sum.ChargingRequested, id)
			}
		}
	}
	return sum
}

func (r *Reconciler) start(task *models.Task) {
	now := r.now()
	if err := r.Store.UpdateTask(task.TaskID, map[string]interface{}{
		"status":     models.TaskStatusRunning,
		"started_at": now,
	}); err != nil {
		log.Printf("❌ 작업 상태 갱신 실패 (%s): %v", task.TaskID, err)
		return
	}
	task.Status = models.TaskStatusRunning
	task.StartedAt = &now
	log.Printf("🚀 작업 실행 시작: %s (%s)", task.TaskID, task.AssignedDeviceID)

	if task.TaskType == models.TaskTypeCharging {
		if err := r.Store.UpdateDevice(task.AssignedDeviceID, map[string]interface{}{"status": models.DeviceStatusCharging}); err != nil {
			log.Printf("⚠️ 디바이스 상태 갱신 실패 (%s): %v", task.AssignedDeviceID, err)
		}
	}
	r.emitStatus(task)
}

func (r *Reconciler) complete(task *models.Task) {
	now := r.now()
	duration := 0
	if task.StartedAt != nil && !task.StartedAt.IsZero() {
		if d := int(now.Sub(*task.StartedAt).Seconds()); d > 0 {
			duration = d
		}
	}
	if err := r.Store.UpdateTask(task.TaskID, map[string]interface{}{
		"status":          models.TaskStatusCompleted,
		"completed_at":    now,
		"actual_duration": duration,
	}); err != nil {
		log.Printf("❌ 작업 상태 갱신 실패 (%s): %v", task.TaskID, err)
		return
	}
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	task.ActualDuration = duration
	r.Triggers.Cancel(task.TaskID)
	log.Printf("✅ 작업 완료: %s (%s, %d초)", task.TaskID, task.AssignedDeviceID, duration)
	r.emitStatus(task)
}

func (r *Reconciler) emitStatus(task *models.Task) {
	r.Events.Emit(models.TaskEvent{
		Event:    models.EventTaskStatus,
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   task.Status,
		DeviceID: task.AssignedDeviceID,
		MapID:    task.MapID,
	})
}

// afterCompletion - 충전 작업이면 존 해제, 아니면 충전 정책 평가
func (r *Reconciler) afterCompletion(task *models.Task) (string, bool) {
	deviceID := task.AssignedDeviceID

	if task.TaskType == models.TaskTypeCharging {
		if zone := task.Details().ChargingZone; zone != "" {
			if err := r.Store.SetChargingZoneOccupancy(task.MapID, zone, "", false); err != nil {
				log.Printf("⚠️ 충전 존 해제 실패 (%s): %v", zone, err)
			}
		}
		if err := r.Store.UpdateDevice(deviceID, map[string]interface{}{"status": models.DeviceStatusWorking}); err != nil {
			log.Printf("⚠️ 디바이스 상태 갱신 실패 (%s): %v", deviceID, err)
		}
		return "", false
	}

	device, err := r.Store.GetDevice(deviceID)
	if err != nil {
		log.Printf("⚠️ 충전 정책 평가 생략 (%s): %v", deviceID, err)
		return "", false
	}
	if device.IsCharging() {
		return "", false
	}
	mapID := device.CurrentMap
	if mapID == "" {
		mapID = task.MapID
	}

	reason := ""
	if device.BatteryLevel < r.Policy.LowBatteryThreshold {
		reason = "low battery"
	} else {
		pending, err := PendingPickupRows(r.DataDir, mapID)
		if err != nil {
			log.Printf("⚠️ 픽업 큐 확인 실패 (map %s): %v", mapID, err)
			return "", false
		}
		if pending == 0 {
			reason = "idle"
		}
	}
	if reason == "" {
		return "", false
	}
	return deviceID, r.requestCharging(device, mapID, reason)
}

// requestCharging - 맵 충전 큐에 요청 추가
func (r *Reconciler) requestCharging(device models.Device, mapID, reason string) bool {
	zone, err := chooseChargingZone(r.Store, mapID)
	if err != nil {
		log.Printf("⚠️ 충전 요청 실패 (%s): %v", device.DeviceID, err)
		return false
	}
	added, err := AppendChargingRequest(r.DataDir, mapID, device.DeviceID, zone)
	if err != nil {
		log.Printf("❌ 충전 큐 기록 실패 (map %s): %v", mapID, err)
		return false
	}
	if !added {
		return false
	}
	log.Printf("🔋 충전 요청: %s → zone %s (%s, 배터리 %.0f%%)", device.DeviceID, zone, reason, device.BatteryLevel)
	r.Events.Emit(models.TaskEvent{
		Event:    models.EventChargingRequested,
		DeviceID: device.DeviceID,
		MapID:    mapID,
		Zone:     zone,
		Message:  reason,
	})
	return true
}
