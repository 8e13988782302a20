package models

import "time"

// ========================================
// 디바이스(로봇) 상태 상수
// ========================================
const (
	DeviceStatusWorking     = "working"     // 작업 가능
	DeviceStatusCharging    = "charging"    // 충전 중
	DeviceStatusIssues      = "issues"      // 이상 발생
	DeviceStatusMaintenance = "maintenance" // 점검 중
)

// ========================================
// 디바이스 작업 큐 상태 (<device_id>_task.csv)
// ========================================
const (
	DeviceTaskPending   = "pending_task"   // 서버 → 디바이스: 작업 대기
	DeviceTaskRun       = "run_task"       // 서버 → 디바이스: 실행 트리거
	DeviceTaskExecuting = "executing_task" // 디바이스 → 서버: 실행 중
	DeviceTaskCompleted = "task_completed" // 디바이스 → 서버: 완료
)

// ========================================
// 디바이스 등록 정보
// ========================================
type Device struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	DeviceID   string `gorm:"uniqueIndex;size:64;not null" json:"device_id"` // 디바이스 고유 ID
	DeviceName string `json:"device_name"`
	Status     string `gorm:"default:working" json:"status"`

	// 운영 상태
	BatteryLevel    float64 `json:"battery_level"` // 배터리 잔량 (0-100%)
	CurrentMap      string  `gorm:"index" json:"current_map"`
	CurrentLocation string  `json:"current_location"` // 마지막으로 보고된 존

	// 속도 설정 (없으면 nil → 명령에 속도를 붙이지 않음)
	ForwardSpeed  *int `json:"forward_speed"`
	TurningSpeed  *int `json:"turning_speed"`
	VerticalSpeed *int `json:"vertical_speed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCharging - 충전 상태 여부
func (d *Device) IsCharging() bool {
	return d.Status == DeviceStatusCharging
}
