package models

import (
	"time"
)

// 디스패치 이벤트 타입
const (
	EventTaskCreated       = "task_created"
	EventTaskStatus        = "task_status"
	EventPlanWritten       = "plan_written"
	EventPlanFailed        = "plan_failed"
	EventChargingRequested = "charging_requested"
	EventTriggerFired      = "trigger_fired"
	EventRequestRejected   = "request_rejected"
	EventDeviceStatus      = "device_status"
)

// DispatchLog - 디스패치/상태 동기화 이벤트 로그
type DispatchLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	EventType string    `gorm:"index" json:"event_type"`

	DeviceID string `gorm:"index" json:"device_id"`
	TaskID   string `gorm:"index" json:"task_id"`
	MapID    string `json:"map_id"`
	TaskType string `json:"task_type"`
	Status   string `json:"status"`

	BatteryLevel float64 `json:"battery_level"`
	Zone         string  `json:"zone"`
	Message      string  `json:"message"`

	// 메타데이터
	DataJSON string `json:"data_json"` // 원본 이벤트 JSON
}
