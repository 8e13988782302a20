package models

import "time"

// ========================================
// 메시지 타입 상수
// ========================================
const (
	// Server → Web
	MessageTypeTaskCreated       = "task_created"       // 작업 생성
	MessageTypeTaskStatus        = "task_status"        // 작업 상태 변경
	MessageTypeChargingRequested = "charging_requested" // 충전 요청 추가
	MessageTypePathPlanned       = "path_planned"       // 경로 파일 작성
	MessageTypeSystemInfo        = "system_info"        // 시스템 정보

	// Device → Server → Web
	MessageTypeDeviceStatus = "device_status" // 배터리/위치
	MessageTypeTaskFeedback = "task_feedback" // 작업 실행 상태
)

// ========================================
// 공통 WebSocket 메시지 형식
// ========================================
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp (ms)
}

// TaskEvent - 작업 라이프사이클 이벤트
type TaskEvent struct {
	EventID   string    `json:"event_id"`
	Event     string    `json:"event"`
	TaskID    string    `json:"task_id"`
	TaskType  string    `json:"task_type"`
	Status    string    `json:"status"`
	DeviceID  string    `json:"device_id"`
	MapID     string    `json:"map_id"`
	Zone      string    `json:"zone,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceStatusData - 디바이스가 보내는 상태 보고
type DeviceStatusData struct {
	DeviceID        string   `json:"device_id"`
	BatteryLevel    *float64 `json:"battery_level,omitempty"`
	CurrentMap      string   `json:"current_map,omitempty"`
	CurrentLocation string   `json:"current_location,omitempty"`
	Status          string   `json:"status,omitempty"`
}

// TaskFeedbackData - 디바이스 작업 큐에 기록할 실행 상태
type TaskFeedbackData struct {
	DeviceID   string `json:"device_id"`
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"` // executing_task | task_completed
}

// ========================================
// 시스템 정보
// ========================================
type SystemInfo struct {
	ConnectedClients int       `json:"connected_clients"` // 연결된 웹 클라이언트 수
	ConnectedDevices int       `json:"connected_devices"` // 연결된 디바이스 수
	PendingTriggers  int       `json:"pending_triggers"`  // 대기 중인 실행 트리거
	ServerTime       time.Time `json:"server_time"`       // 서버 시각
	Uptime           int64     `json:"uptime"`            // 가동 시간 (초)
}
