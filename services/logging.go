package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"wms-backend/models"

	"gorm.io/gorm"
)

var errLoggingDisabled = errors.New("logging not initialised")

// 로깅 버퍼 (비동기 일괄 처리)
type LogBuffer struct {
	db        *gorm.DB
	logs      []models.DispatchLog
	mu        sync.Mutex
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 시간
	stopChan  chan bool
	done      chan struct{}
}

var logBuffer *LogBuffer

// InitLogging - 로깅 시스템 초기화
func InitLogging(gdb *gorm.DB, flushSize int, flushInterval time.Duration) {
	if flushSize <= 0 {
		flushSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	logBuffer = &LogBuffer{
		db:        gdb,
		logs:      make([]models.DispatchLog, 0, flushSize*2),
		flushSize: flushSize,
		flushTime: flushInterval,
		stopChan:  make(chan bool),
		done:      make(chan struct{}),
	}

	// 자동 플러시 고루틴 시작
	go logBuffer.autoFlush()

	log.Printf("✅ 로깅 시스템 초기화 완료 (flushSize: %d, flushInterval: %v)", flushSize, flushInterval)
}

// autoFlush - 주기적 로그 저장
func (lb *LogBuffer) autoFlush() {
	ticker := time.NewTicker(lb.flushTime)
	defer ticker.Stop()
	defer close(lb.done)

	for {
		select {
		case <-ticker.C:
			lb.Flush()
		case <-lb.stopChan:
			lb.Flush() // 종료 시 남은 로그 저장
			return
		}
	}
}

// AddLog - 로그 버퍼에 추가 (비동기)
func AddLog(entry models.DispatchLog) {
	if logBuffer == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	logBuffer.mu.Lock()
	logBuffer.logs = append(logBuffer.logs, entry)
	size := len(logBuffer.logs)
	logBuffer.mu.Unlock()

	// 버퍼 크기가 차면 즉시 플러시
	if size >= logBuffer.flushSize {
		go logBuffer.Flush()
	}
}

// Flush - 버퍼의 모든 로그를 DB에 저장
func (lb *LogBuffer) Flush() {
	lb.mu.Lock()
	if len(lb.logs) == 0 {
		lb.mu.Unlock()
		return
	}

	// 로그 복사 및 버퍼 초기화
	logsToSave := make([]models.DispatchLog, len(lb.logs))
	copy(logsToSave, lb.logs)
	lb.logs = lb.logs[:0]
	lb.mu.Unlock()

	if lb.db != nil {
		if err := lb.db.CreateInBatches(logsToSave, 100).Error; err != nil {
			log.Printf("❌ 로그 저장 실패: %v", err)
		} else {
			log.Printf("💾 로그 %d개 저장 완료", len(logsToSave))
		}
	}
}

// FlushLogs - 즉시 저장 (테스트 / 종료 직전)
func FlushLogs() {
	if logBuffer != nil {
		logBuffer.Flush()
	}
}

// LogTaskEvent - 작업 라이프사이클 이벤트 로그
func LogTaskEvent(ev models.TaskEvent) {
	dataJSON, _ := json.Marshal(ev)
	AddLog(models.DispatchLog{
		CreatedAt: ev.Timestamp,
		EventType: ev.Event,
		DeviceID:  ev.DeviceID,
		TaskID:    ev.TaskID,
		MapID:     ev.MapID,
		TaskType:  ev.TaskType,
		Status:    ev.Status,
		Zone:      ev.Zone,
		Message:   ev.Message,
		DataJSON:  string(dataJSON),
	})
}

// LogDeviceStatus - 디바이스 상태 보고 로그
func LogDeviceStatus(status models.DeviceStatusData) {
	dataJSON, _ := json.Marshal(status)
	entry := models.DispatchLog{
		EventType: models.EventDeviceStatus,
		DeviceID:  status.DeviceID,
		MapID:     status.CurrentMap,
		Status:    status.Status,
		Zone:      status.CurrentLocation,
		DataJSON:  string(dataJSON),
	}
	if status.BatteryLevel != nil {
		entry.BatteryLevel = *status.BatteryLevel
	}
	AddLog(entry)
}

func logStore() (*gorm.DB, error) {
	if logBuffer == nil || logBuffer.db == nil {
		return nil, errLoggingDisabled
	}
	return logBuffer.db, nil
}

// byDevice - device_id가 비어 있으면 전체
func byDevice(q *gorm.DB, deviceID string) *gorm.DB {
	if deviceID == "" {
		return q
	}
	return q.Where("device_id = ?", deviceID)
}

// GetRecentLogs - 최근 로그 조회
func GetRecentLogs(deviceID string, limit int) ([]models.DispatchLog, error) {
	gdb, err := logStore()
	if err != nil {
		return nil, err
	}
	var logs []models.DispatchLog
	err = byDevice(gdb, deviceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogsByTimeRange - 시간 범위로 로그 조회
func GetLogsByTimeRange(deviceID string, start, end time.Time, limit int) ([]models.DispatchLog, error) {
	gdb, err := logStore()
	if err != nil {
		return nil, err
	}
	var logs []models.DispatchLog
	query := byDevice(gdb, deviceID).Where("created_at BETWEEN ? AND ?", start, end)

	if limit > 0 {
		query = query.Limit(limit)
	}

	err = query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// GetLogsByEventType - 이벤트 타입별 로그 조회
func GetLogsByEventType(deviceID string, eventType string, limit int) ([]models.DispatchLog, error) {
	gdb, err := logStore()
	if err != nil {
		return nil, err
	}
	var logs []models.DispatchLog
	err = byDevice(gdb, deviceID).Where("event_type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogStats - 로그 통계
func GetLogStats(deviceID string, hours int) (map[string]interface{}, error) {
	gdb, err := logStore()
	if err != nil {
		return nil, err
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var totalLogs int64
	if err := byDevice(gdb.Model(&models.DispatchLog{}), deviceID).
		Where("created_at >= ?", since).
		Count(&totalLogs).Error; err != nil {
		return nil, err
	}

	// 이벤트 타입별 카운트
	var eventCounts []struct {
		EventType string
		Count     int64
	}
	if err := byDevice(gdb.Model(&models.DispatchLog{}), deviceID).
		Select("event_type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type").
		Scan(&eventCounts).Error; err != nil {
		return nil, err
	}

	eventMap := make(map[string]int64)
	for _, ec := range eventCounts {
		eventMap[ec.EventType] = ec.Count
	}

	return map[string]interface{}{
		"total_logs":   totalLogs,
		"event_counts": eventMap,
		"time_range":   fmt.Sprintf("Last %d hours", hours),
	}, nil
}

// StopLogging - 로깅 시스템 종료
func StopLogging() {
	if logBuffer != nil {
		logBuffer.stopChan <- true
		<-logBuffer.done
		logBuffer = nil
		log.Println("🛑 로깅 시스템 종료")
	}
}
