package handlers

import (
	"fmt"
	"log"
	"sync"
	"time"

	"wms-backend/models"
)

// deviceTimeout - 이 시간 동안 보고가 없으면 오프라인
const deviceTimeout = 10 * time.Second

// Devices - WebSocket으로 연결된 디바이스 목록
var Devices = NewDeviceManager()

// DeviceManager - 실시간 연결된 디바이스 상태 관리
type DeviceManager struct {
	mu       sync.RWMutex
	devices  map[string]*DeviceInfo // device_id -> DeviceInfo
	lastPing map[string]time.Time   // device_id -> 마지막 보고 시간
}

// DeviceInfo - 연결된 디바이스의 최근 보고
type DeviceInfo struct {
	ID              string    `json:"id"`
	RegisteredAt    time.Time `json:"registered_at"`
	LastUpdate      time.Time `json:"last_update"`
	BatteryLevel    float64   `json:"battery_level"`
	CurrentMap      string    `json:"current_map"`
	CurrentLocation string    `json:"current_location"`
	Status          string    `json:"status"`
	CurrentTask     string    `json:"current_task,omitempty"`
	TaskStatus      string    `json:"task_status,omitempty"`
}

// NewDeviceManager - Device Manager 생성
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		devices:  make(map[string]*DeviceInfo),
		lastPing: make(map[string]time.Time),
	}
}

// Register - 디바이스 등록
//
// 이미 등록된 device_id면 마지막 보고 시간만 갱신한다.
func (m *DeviceManager) Register(deviceID string) (*DeviceInfo, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device ID가 비어있습니다")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if info, exists := m.devices[deviceID]; exists {
		info.LastUpdate = now
		m.lastPing[deviceID] = now
		return info, nil
	}

	info := &DeviceInfo{
		ID:           deviceID,
		RegisteredAt: now,
		LastUpdate:   now,
		Status:       models.DeviceStatusWorking,
	}
	m.devices[deviceID] = info
	m.lastPing[deviceID] = now
	log.Printf("[Manager] device registered: %s\n", deviceID)
	return info, nil
}

// UpdateStatus - 배터리 / 위치 보고 반영 (빈 값은 유지)
func (m *DeviceManager) UpdateStatus(st models.DeviceStatusData) {
	info, _ := m.Register(st.DeviceID)
	if info == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if st.BatteryLevel != nil {
		info.BatteryLevel = *st.BatteryLevel
	}
	if st.CurrentMap != "" {
		info.CurrentMap = st.CurrentMap
	}
	if st.CurrentLocation != "" {
		info.CurrentLocation = st.CurrentLocation
	}
	if st.Status != "" {
		info.Status = st.Status
	}
	info.LastUpdate = time.Now()
	m.lastPing[st.DeviceID] = info.LastUpdate
}

// UpdateTask - 작업 실행 상태 보고 반영
func (m *DeviceManager) UpdateTask(fb models.TaskFeedbackData) {
	info, _ := m.Register(fb.DeviceID)
	if info == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	info.CurrentTask = fb.TaskID
	info.TaskStatus = fb.TaskStatus
}

// GetStatus - 디바이스 상태 조회
func (m *DeviceManager) GetStatus(deviceID string) (*DeviceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.devices[deviceID]
	if !exists {
		return nil, fmt.Errorf("device not found: %s", deviceID)
	}
	return info, nil
}

// GetAllStatuses - 모든 디바이스 상태 조회
func (m *DeviceManager) GetAllStatuses() []*DeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*DeviceInfo, 0, len(m.devices))
	for _, info := range m.devices {
		result = append(result, info)
	}
	return result
}

// Remove - 디바이스 등록 해제
func (m *DeviceManager) Remove(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.devices, deviceID)
	delete(m.lastPing, deviceID)
	log.Printf("[Manager] device removed: %s\n", deviceID)
}

// Count - 현재 등록된 디바이스 수
func (m *DeviceManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// IsAlive - 마지막 보고로부터 timeout 이내인지
func (m *DeviceManager) IsAlive(deviceID string, timeout time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lastPing, exists := m.lastPing[deviceID]
	if !exists {
		return false
	}
	return time.Since(lastPing) < timeout
}

// CleanupOffline - timeout 동안 보고가 없는 디바이스 제거
func (m *DeviceManager) CleanupOffline(timeout time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := time.Now()
	for id, lastPing := range m.lastPing {
		if now.Sub(lastPing) > timeout {
			delete(m.devices, id)
			delete(m.lastPing, id)
			log.Printf("[Manager] device cleanup: %s (offline)\n", id)
			count++
		}
	}
	return count
}

// GetStatistics - 연결된 디바이스 통계
func (m *DeviceManager) GetStatistics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.devices)
	charging := 0
	totalBattery := 0.0
	for _, info := range m.devices {
		if info.Status == models.DeviceStatusCharging {
			charging++
		}
		totalBattery += info.BatteryLevel
	}

	avgBattery := 0.0
	if total > 0 {
		avgBattery = totalBattery / float64(total)
	}

	return map[string]interface{}{
		"total_devices": total,
		"charging":      charging,
		"avg_battery":   avgBattery,
	}
}
