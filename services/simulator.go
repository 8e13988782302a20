package services

import (
	"log"
	"math/rand"
	"sync"
	"time"
	"wms-backend/models"
)

// 시뮬레이션 파라미터
const (
	simExecuteTicks  = 3    // executing_task → task_completed 까지 틱 수
	simDrainPerTick  = 4.0  // 작업 중 배터리 소모 (%/틱, 최대)
	simChargePerTick = 15.0 // 충전 중 배터리 회복 (%/틱)
)

// DeviceSimulator - 하드웨어 없이 디바이스 작업 큐를 진행시키는 시뮬레이터
// run_task → executing_task → task_completed
type DeviceSimulator struct {
	IsRunning     bool
	broadcastFunc BroadcastFunc

	store    *Store
	files    *DeviceFiles
	interval time.Duration
	progress map[string]int // task_id → 실행 틱
	rng      *rand.Rand

	// 제어
	stopChan chan bool
	mu       sync.RWMutex
}

// NewDeviceSimulator - 시뮬레이터 생성
func NewDeviceSimulator(store *Store, files *DeviceFiles, interval time.Duration, broadcastFunc BroadcastFunc) *DeviceSimulator {
	if interval <= 0 {
		interval = time.Second
	}
	return &DeviceSimulator{
		broadcastFunc: broadcastFunc,
		store:         store,
		files:         files,
		interval:      interval,
		progress:      make(map[string]int),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		stopChan:      make(chan bool),
	}
}

// Start - 시뮬레이션 시작
func (s *DeviceSimulator) Start() {
	s.mu.Lock()
	if s.IsRunning {
		s.mu.Unlock()
		return
	}
	s.IsRunning = true
	s.mu.Unlock()

	log.Println("🚀 디바이스 시뮬레이터 시작")
	go s.runSimulation()
}

// Stop - 시뮬레이션 중지
func (s *DeviceSimulator) Stop() {
	s.mu.Lock()
	if !s.IsRunning {
		s.mu.Unlock()
		return
	}
	s.IsRunning = false
	s.mu.Unlock()

	s.stopChan <- true
	log.Println("🛑 디바이스 시뮬레이터 중지")
}

func (s *DeviceSimulator) runSimulation() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step - 모든 디바이스를 한 틱 진행
func (s *DeviceSimulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.store.ListDevices()
	if err != nil {
		log.Printf("⚠️ 시뮬레이터: 디바이스 조회 실패: %v", err)
		return
	}
	for i := range devices {
		s.stepDevice(&devices[i])
	}
}

func (s *DeviceSimulator) stepDevice(d *models.Device) {
	queue, err := s.files.TaskQueue(d.DeviceID)
	if err != nil || len(queue) == 0 {
		return
	}

	// task_id별 마지막 상태
	latest := make(map[string]string)
	order := make([]string, 0)
	for _, row := range queue {
		if _, ok := latest[row[0]]; !ok {
			order = append(order, row[0])
		}
		latest[row[0]] = row[1]
	}

	for _, taskID := range order {
		task, err := s.store.GetTask(taskID)
		if err != nil {
			continue
		}
		charging := task.TaskType == models.TaskTypeCharging

		switch latest[taskID] {
		case models.DeviceTaskRun:
			s.appendStatus(d.DeviceID, taskID, models.DeviceTaskExecuting)
			s.progress[taskID] = 0
			return

		case models.DeviceTaskPending:
			// 충전 작업은 도착 즉시 충전 시작
			if charging {
				s.appendStatus(d.DeviceID, taskID, models.DeviceTaskExecuting)
				s.progress[taskID] = 0
				return
			}

		case models.DeviceTaskExecuting:
			s.progress[taskID]++
			if charging {
				d.BatteryLevel += simChargePerTick
			} else {
				d.BatteryLevel -= s.rng.Float64() * simDrainPerTick
			}
			d.BatteryLevel = clampBattery(d.BatteryLevel)

			done := s.progress[taskID] >= simExecuteTicks
			if charging {
				done = d.BatteryLevel >= 100
			}
			if done {
				if zone := destinationZone(&task); zone != "" {
					d.CurrentLocation = zone
				}
				s.appendStatus(d.DeviceID, taskID, models.DeviceTaskCompleted)
				delete(s.progress, taskID)
			}
			s.report(d)
			return
		}
	}
}

func (s *DeviceSimulator) appendStatus(deviceID, taskID, status string) {
	if err := s.files.AppendTaskStatus(deviceID, taskID, status); err != nil {
		log.Printf("⚠️ 시뮬레이터: 작업 큐 기록 실패 (%s): %v", deviceID, err)
	}
}

// report - 배터리 / 위치 반영 후 상태 브로드캐스트
func (s *DeviceSimulator) report(d *models.Device) {
	if err := s.store.UpdateDevice(d.DeviceID, map[string]interface{}{
		"battery_level":    d.BatteryLevel,
		"current_location": d.CurrentLocation,
	}); err != nil {
		log.Printf("⚠️ 시뮬레이터: 디바이스 갱신 실패 (%s): %v", d.DeviceID, err)
	}
	if err := s.files.AppendState(d.DeviceID, DeviceState{CurrentLocation: d.CurrentLocation}); err != nil {
		log.Printf("⚠️ 시뮬레이터: 상태 로그 기록 실패 (%s): %v", d.DeviceID, err)
	}

	battery := d.BatteryLevel
	status := models.DeviceStatusData{
		DeviceID:        d.DeviceID,
		BatteryLevel:    &battery,
		CurrentMap:      d.CurrentMap,
		CurrentLocation: d.CurrentLocation,
		Status:          d.Status,
	}
	LogDeviceStatus(status)

	if s.broadcastFunc != nil {
		s.broadcastFunc(models.WebSocketMessage{
			Type:      models.MessageTypeDeviceStatus,
			Data:      status,
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

// destinationZone - 작업이 끝났을 때 디바이스가 있을 존
func destinationZone(t *models.Task) string {
	d := t.Details()
	switch {
	case d.ChargingZone != "":
		return d.ChargingZone
	case d.EndZone != "":
		return d.EndZone
	default:
		return d.DropZone
	}
}

func clampBattery(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
