package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ========================================
// 작업 타입 / 상태 상수
// ========================================
const (
	TaskTypePicking  = "picking"
	TaskTypeStoring  = "storing"
	TaskTypeAuditing = "auditing"
	TaskTypeCharging = "charging"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusRunning    = "running"
	TaskStatusProcessing = "processing" // 외부 도구가 쓰는 running 동의어
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task - 작업 레코드 (큐 요청 1건당 1개 생성)
type Task struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	TaskID            string `gorm:"uniqueIndex;size:32;not null" json:"task_id"` // TASKnnnn
	TaskName          string `json:"task_name"`
	TaskType          string `gorm:"index" json:"task_type"`
	Status            string `gorm:"index" json:"status"`
	AssignedDeviceID  string `gorm:"index" json:"assigned_device_id"`
	AssignedDeviceIDs string `json:"assigned_device_ids"` // 콤마 구분
	Description       string `json:"description"`

	EstimatedDuration int `json:"estimated_duration"` // 초
	ActualDuration    int `json:"actual_duration"`    // 초

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	MapID       string         `gorm:"index" json:"map_id"`
	StopIDs     string         `json:"stop_ids"`
	TaskDetails datatypes.JSON `json:"task_details"`
}

// TaskDetails - task_details JSON 구조
type TaskDetails struct {
	PickupMapID string   `json:"pickup_map_id,omitempty"`
	PickupStops []string `json:"pickup_stops,omitempty"`
	DropZone    string   `json:"drop_zone,omitempty"`

	// 4-stop 형식
	CheckStop string `json:"check_stop,omitempty"`
	DropStop  string `json:"drop_stop,omitempty"`
	EndStop   string `json:"end_stop,omitempty"`
	EndZone   string `json:"end_zone,omitempty"`

	ChargingZone string `json:"charging_zone,omitempty"`

	// stop_id -> 선택된 rack_id 목록
	SelectedRacks map[string][]string `json:"selected_racks,omitempty"`

	Automatic bool `json:"automatic"`
}

// IsFourStop - 4-stop 형식 여부
func (d TaskDetails) IsFourStop() bool {
	return d.CheckStop != "" || d.DropStop != "" || d.EndStop != ""
}

// Details - task_details 디코딩 (실패 시 빈 구조체)
func (t *Task) Details() TaskDetails {
	var d TaskDetails
	if len(t.TaskDetails) == 0 {
		return d
	}
	_ = json.Unmarshal(t.TaskDetails, &d)
	return d
}

// SetDetails - task_details 인코딩
func (t *Task) SetDetails(d TaskDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	t.TaskDetails = datatypes.JSON(raw)
	return nil
}

// IsActive - pending/running/processing 여부
func (t *Task) IsActive() bool {
	switch t.Status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusProcessing:
		return true
	}
	return false
}

// DeviceIDs - 주 디바이스 + assigned_device_ids (중복 제거)
func (t *Task) DeviceIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, id := range append([]string{t.AssignedDeviceID}, strings.Split(t.AssignedDeviceIDs, ",")...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
