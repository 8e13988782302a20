package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"wms-backend/algorithms"
	"wms-backend/models"

	"gorm.io/gorm"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateStop   = errors.New("duplicate stop_id in map")
	ErrStopNotFound    = errors.New("stop not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrMapNotFound     = errors.New("map not found")
	ErrNoChargingZone  = errors.New("no charging zone configured")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUnknownTaskType = errors.New("unknown task type")
)

// Store - 엔티티 저장소 (GORM)
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// ========================================
// 맵 토폴로지
// ========================================

// ValidateTopology - import 전에 한 번만 검증
func ValidateTopology(t models.Topology) error {
	if strings.TrimSpace(t.Map.MapID) == "" {
		return fmt.Errorf("%w: map_id is required", ErrValidation)
	}

	connIDs := make(map[uint]bool)
	for i, c := range t.Connections {
		if c.FromZone == "" || c.ToZone == "" {
			return fmt.Errorf("%w: connection %d has empty zone", ErrValidation, i)
		}
		if c.Magnitude < 0 {
			return fmt.Errorf("%w: connection %s→%s has negative magnitude", ErrValidation, c.FromZone, c.ToZone)
		}
		if c.ID != 0 {
			if connIDs[c.ID] {
				return fmt.Errorf("%w: duplicate connection id %d", ErrValidation, c.ID)
			}
			connIDs[c.ID] = true
		}
	}

	seen := make(map[string]bool)
	for _, st := range t.Stops {
		id := strings.TrimSpace(st.StopID)
		if id == "" {
			return fmt.Errorf("%w: stop without stop_id", ErrValidation)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateStop, id)
		}
		seen[id] = true
		if !connIDs[st.ZoneConnectionID] {
			return fmt.Errorf("%w: stop %s references unknown connection %d", ErrValidation, id, st.ZoneConnectionID)
		}
	}

	for _, r := range t.Racks {
		if r.RackID == "" {
			return fmt.Errorf("%w: rack without rack_id", ErrValidation)
		}
		if r.StopID != "" && !seen[r.StopID] {
			return fmt.Errorf("%w: rack %s references unknown stop %s", ErrValidation, r.RackID, r.StopID)
		}
	}
	return nil
}

// ImportTopology - 맵 구성을 통째로 교체
// connection id는 payload 내부 키로 쓰이고 저장 시 새 id로 다시 매핑된다.
func (s *Store) ImportTopology(t models.Topology) error {
	if err := ValidateTopology(t); err != nil {
		return err
	}
	mapID := t.Map.MapID
	if t.Map.Name == "" {
		t.Map.Name = mapID
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// 랙은 map_name으로 묶인다: 이전 이름, 새 이름, map_id 모두 정리
		rackOwners := []string{mapID, t.Map.Name}

		var existing models.Map
		err := tx.Where("map_id = ?", mapID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Name != "" {
				rackOwners = append(rackOwners, existing.Name)
			}
			existing.Name = t.Map.Name
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			m := models.Map{MapID: mapID, Name: t.Map.Name}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for _, model := range []interface{}{&models.Stop{}, &models.ZoneConnection{}, &models.ZoneAlignment{}, &models.ChargingZone{}} {
			if err := tx.Where("map_id = ?", mapID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("map_name IN ?", rackOwners).Delete(&models.Rack{}).Error; err != nil {
			return err
		}

		idMap := make(map[uint]uint)
		for _, c := range t.Connections {
			key := c.ID
			c.ID = 0
			c.MapID = mapID
			c.Direction = string(algorithms.ParseDirection(c.Direction))
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			idMap[key] = c.ID
		}
		for _, st := range t.Stops {
			st.ID = 0
			st.MapID = mapID
			st.StopID = strings.TrimSpace(st.StopID)
			st.ZoneConnectionID = idMap[st.ZoneConnectionID]
			if err := tx.Create(&st).Error; err != nil {
				return err
			}
		}
		for _, r := range t.Racks {
			r.ID = 0
			r.MapName = t.Map.Name
			if err := tx.Where("rack_id = ?", r.RackID).Delete(&models.Rack{}).Error; err != nil {
				return err
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}
		for _, a := range t.Alignments {
			a.ID = 0
			a.MapID = mapID
			if a.Alignment == "" {
				a.Alignment = "No"
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
		}
		for _, z := range t.ChargingZones {
			z.ID = 0
			z.MapID = mapID
			if err := tx.Create(&z).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetMap(mapID string) (models.Map, error) {
	var m models.Map
	err := s.db.Where("map_id = ?", mapID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, fmt.Errorf("%w: %s", ErrMapNotFound, mapID)
	}
	return m, err
}

func (s *Store) ListMaps() ([]models.Map, error) {
	var maps []models.Map
	err := s.db.Order("map_id").Find(&maps).Error
	return maps, err
}

func (s *Store) Connections(mapID string) ([]models.ZoneConnection, error) {
	var conns []models.ZoneConnection
	err := s.db.Where("map_id = ?", mapID).Order("id").Find(&conns).Error
	return conns, err
}

func (s *Store) Stops(mapID string) ([]models.Stop, error) {
	var stops []models.Stop
	err := s.db.Where("map_id = ?", mapID).Order("id").Find(&stops).Error
	return stops, err
}

// FindStop - 맵 내 stop_id 조회
func (s *Store) FindStop(mapID, stopID string) (models.Stop, error) {
	var st models.Stop
	err := s.db.Where("map_id = ? AND stop_id = ?", mapID, stopID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, fmt.Errorf("%w: %s/%s", ErrStopNotFound, mapID, stopID)
	}
	return st, err
}

func (s *Store) Connection(id uint) (models.ZoneConnection, error) {
	var c models.ZoneConnection
	err := s.db.First(&c, id).Error
	return c, err
}

// RacksForMap - 맵 이름 기준 랙 목록
func (s *Store) RacksForMap(mapName string) ([]models.Rack, error) {
	var racks []models.Rack
	err := s.db.Where("map_name = ?", mapName).Order("id").Find(&racks).Error
	return racks, err
}

// Alignment - zone → Yes/No
func (s *Store) Alignment(mapID string) (map[string]string, error) {
	var rows []models.ZoneAlignment
	if err := s.db.Where("map_id = ?", mapID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[strings.TrimSpace(r.Zone)] = strings.TrimSpace(r.Alignment)
	}
	return out, nil
}

func (s *Store) ChargingZones(mapID string) ([]models.ChargingZone, error) {
	var zones []models.ChargingZone
	err := s.db.Where("map_id = ?", mapID).Order("id").Find(&zones).Error
	return zones, err
}

// SetChargingZoneOccupancy - 충전 존 점유/해제
func (s *Store) SetChargingZoneOccupancy(mapID, zone, deviceID string, occupied bool) error {
	return s.db.Model(&models.ChargingZone{}).
		Where("map_id = ? AND zone = ?", mapID, zone).
		Updates(map[string]interface{}{"occupied": occupied, "device_id": deviceID}).Error
}

// ========================================
// 디바이스
// ========================================

func (s *Store) ListDevices() ([]models.Device, error) {
	var devices []models.Device
	err := s.db.Order("device_id").Find(&devices).Error
	return devices, err
}

func (s *Store) GetDevice(deviceID string) (models.Device, error) {
	var d models.Device
	err := s.db.Where("device_id = ?", deviceID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return d, err
}

// UpsertDevice - device_id 기준 저장
func (s *Store) UpsertDevice(d *models.Device) error {
	var existing models.Device
	err := s.db.Where("device_id = ?", d.DeviceID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(d).Error
	}
	if err != nil {
		return err
	}
	d.ID = existing.ID
	d.CreatedAt = existing.CreatedAt
	return s.db.Save(d).Error
}

// UpdateDevice - 일부 필드만 갱신
func (s *Store) UpdateDevice(deviceID string, fields map[string]interface{}) error {
	res := s.db.Model(&models.Device{}).Where("device_id = ?", deviceID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return nil
}

// ========================================
// 작업
// ========================================

func (s *Store) ListTasks(limit int) ([]models.Task, error) {
	var tasks []models.Task
	q := s.db.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

func (s *Store) GetTask(taskID string) (models.Task, error) {
	var t models.Task
	err := s.db.Where("task_id = ?", taskID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return t, err
}

// ActiveTasks - pending/running/processing
func (s *Store) ActiveTasks() ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where("status IN ?", []string{
		models.TaskStatusPending, models.TaskStatusRunning, models.TaskStatusProcessing,
	}).Order("id").Find(&tasks).Error
	return tasks, err
}

// BusyDevices - 활성 작업이 있는 디바이스 집합
func (s *Store) BusyDevices() (map[string]bool, error) {
	tasks, err := s.ActiveTasks()
	if err != nil {
		return nil, err
	}
	busy := make(map[string]bool)
	for _, t := range tasks {
		for _, id := range t.DeviceIDs() {
			busy[id] = true
		}
	}
	return busy, nil
}

// NextTaskID - 기존 TASKnnnn 중 최댓값 + 1
func (s *Store) NextTaskID() (string, error) {
	var ids []string
	if err := s.db.Model(&models.Task{}).Pluck("task_id", &ids).Error; err != nil {
		return "", err
	}
	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(id), "TASK"))
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("TASK%04d", max+1), nil
}

func (s *Store) CreateTask(t *models.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	return s.db.Create(t).Error
}

// UpdateTask - 일부 필드만 갱신
func (s *Store) UpdateTask(taskID string, fields map[string]interface{}) error {
	return s.db.Model(&models.Task{}).Where("task_id = ?", taskID).Updates(fields).Error
}
