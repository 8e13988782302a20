package models

import "strings"

// ========================================
// 맵 토폴로지 (존 / 연결 / 정차 지점 / 랙)
// ========================================

// Map - 창고 맵
type Map struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	MapID string `gorm:"uniqueIndex;size:64;not null" json:"map_id"`
	Name  string `json:"name"`
}

// ZoneConnection - 방향성 엣지 (from_zone → to_zone)
type ZoneConnection struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	MapID     string  `gorm:"index;size:64;not null" json:"map_id"`
	FromZone  string  `gorm:"size:64;not null" json:"from_zone"`
	ToZone    string  `gorm:"size:64;not null" json:"to_zone"`
	Magnitude float64 `json:"magnitude"` // 미터
	Direction string  `json:"direction"` // north/south/east/west (+대각선)
}

// Stop - 엣지 위 정차 지점 (stop_id는 맵 내에서 유일)
type Stop struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	MapID             string  `gorm:"uniqueIndex:idx_map_stop;size:64;not null" json:"map_id"`
	ZoneConnectionID  uint    `gorm:"index" json:"zone_connection_id"`
	StopID            string  `gorm:"uniqueIndex:idx_map_stop;size:64;not null" json:"stop_id"`
	Name              string  `json:"name"`
	DistanceFromStart float64 `json:"distance_from_start"` // 미터
	StopType          string  `json:"stop_type"`           // left | right | center | ""

	LeftBinsCount     int     `json:"left_bins_count"`
	RightBinsCount    int     `json:"right_bins_count"`
	LeftBinsDistance  float64 `json:"left_bins_distance"`  // 미터
	RightBinsDistance float64 `json:"right_bins_distance"` // 미터

	RackID         string  `json:"rack_id"`
	RackDistanceMM float64 `json:"rack_distance_mm"`
}

// Rack - 정차 지점에서 수직 이동으로 접근하는 랙
type Rack struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	RackID         string  `gorm:"uniqueIndex;size:64;not null" json:"rack_id"`
	MapName        string  `gorm:"index" json:"map_name"`
	ZoneName       string  `json:"zone_name"`
	StopID         string  `gorm:"index" json:"stop_id"`
	RackDistanceMM float64 `json:"rack_distance_mm"`
}

// ZoneAlignment - 존별 ALIGN 정책
type ZoneAlignment struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	MapID     string `gorm:"index;size:64;not null" json:"map_id"`
	Zone      string `gorm:"size:64;not null" json:"zone"`
	Alignment string `gorm:"default:No" json:"alignment"` // Yes | No
}

// Enabled - Yes/yes/y...
func (z ZoneAlignment) Enabled() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(z.Alignment)), "y")
}

// ChargingZone - 맵별 충전 존
type ChargingZone struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MapID    string `gorm:"index;size:64;not null" json:"map_id"`
	Zone     string `gorm:"size:64;not null" json:"zone"`
	Occupied bool   `json:"occupied"`
	DeviceID string `json:"device_id"`
}

// Topology - 맵 하나의 전체 구성 (일괄 import 용)
type Topology struct {
	Map           Map              `json:"map"`
	Connections   []ZoneConnection `json:"connections"`
	Stops         []Stop           `json:"stops"`
	Racks         []Rack           `json:"racks"`
	Alignments    []ZoneAlignment  `json:"alignments"`
	ChargingZones []ChargingZone   `json:"charging_zones"`
}
