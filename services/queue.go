package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// 큐 요청 action 값
const (
	ActionCreateTask  = "create_task"
	ActionTaskCreated = "task_created"
)

const (
	pickupQueueSuffix   = "_create_pickup_task.csv"
	chargingQueueSuffix = "_create_charging_task.csv"
)

var (
	pickupQueueHeader   = []string{"stop_id", "check_stop_id", "drop_stop_id", "end_stop_id", "drop_zone", "end_zone", "action"}
	chargingQueueHeader = []string{"device_id", "charging_zone", "action"}
)

// QueueFile - 헤더를 보존하는 요청 큐 파일
type QueueFile struct {
	Path   string
	MapID  string
	Header []string
	Rows   [][]string
}

// PickupRequest - 픽업 요청 한 줄
type PickupRequest struct {
	Row         int
	StopID      string
	CheckStopID string
	DropStopID  string
	EndStopID   string
	DropZone    string
	EndZone     string
	Action      string
}

// IsFourStop - check/drop/end 중 하나라도 있으면 4-stop 형식
func (r PickupRequest) IsFourStop() bool {
	return r.CheckStopID != "" || r.DropStopID != "" || r.EndStopID != ""
}

// Validate - 필수 식별자 확인
func (r PickupRequest) Validate() error {
	if r.StopID == "" {
		return fmt.Errorf("%w: stop_id is required", ErrValidation)
	}
	if r.IsFourStop() {
		if r.CheckStopID == "" || r.DropStopID == "" || r.EndStopID == "" {
			return fmt.Errorf("%w: 4-stop request needs check_stop_id, drop_stop_id and end_stop_id", ErrValidation)
		}
		return nil
	}
	if r.DropZone == "" {
		return fmt.Errorf("%w: drop_zone is required", ErrValidation)
	}
	return nil
}

// ChargingRequest - 충전 요청 한 줄
type ChargingRequest struct {
	Row          int
	DeviceID     string
	ChargingZone string
	Action       string
}

// PickupQueuePath / ChargingQueuePath - 맵별 큐 파일 경로
func PickupQueuePath(dataDir, mapID string) string {
	return filepath.Join(dataDir, mapID+pickupQueueSuffix)
}

func ChargingQueuePath(dataDir, mapID string) string {
	return filepath.Join(dataDir, mapID+chargingQueueSuffix)
}

// ListQueueFiles - dataDir의 <map>_<suffix> 파일 (정렬)
func listQueueFiles(dataDir, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "*"+suffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// mapIDFromQueue - "15_create_pickup_task.csv" → "15"
func mapIDFromQueue(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "_"); i > 0 {
		return name[:i]
	}
	return ""
}

// LoadQueue - 파일을 읽어 QueueFile 구성
func LoadQueue(path string) (*QueueFile, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	return &QueueFile{Path: path, MapID: mapIDFromQueue(path), Header: header, Rows: rows}, nil
}

// Save - 전체 재작성
func (q *QueueFile) Save() error {
	all := make([][]string, 0, len(q.Rows)+1)
	all = append(all, q.Header)
	for _, r := range q.Rows {
		all = append(all, q.pad(r))
	}
	return WriteRows(q.Path, all)
}

func (q *QueueFile) pad(r []string) []string {
	if len(r) >= len(q.Header) {
		return r
	}
	out := make([]string, len(q.Header))
	copy(out, r)
	return out
}

func (q *QueueFile) Get(row int, col string) string {
	return field(q.Rows[row], columnIndex(q.Header, col))
}

// Set - 열이 없으면 헤더 끝에 추가
func (q *QueueFile) Set(row int, col, value string) {
	i := columnIndex(q.Header, col)
	if i < 0 {
		q.Header = append(q.Header, col)
		i = len(q.Header) - 1
	}
	q.Rows[row] = q.pad(q.Rows[row])
	for len(q.Rows[row]) <= i {
		q.Rows[row] = append(q.Rows[row], "")
	}
	q.Rows[row][i] = value
}

// Append - 헤더 순서대로 새 행 추가 (없는 열은 헤더 끝에 추가)
func (q *QueueFile) Append(values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if columnIndex(q.Header, k) < 0 && values[k] != "" {
			q.Header = append(q.Header, k)
		}
	}
	row := make([]string, len(q.Header))
	for i, h := range q.Header {
		row[i] = values[h]
	}
	q.Rows = append(q.Rows, row)
}

// PickupRequests - action 관계없이 모든 행
func (q *QueueFile) PickupRequests() []PickupRequest {
	out := make([]PickupRequest, 0, len(q.Rows))
	for i := range q.Rows {
		out = append(out, PickupRequest{
			Row:         i,
			StopID:      q.Get(i, "stop_id"),
			CheckStopID: q.Get(i, "check_stop_id"),
			DropStopID:  q.Get(i, "drop_stop_id"),
			EndStopID:   q.Get(i, "end_stop_id"),
			DropZone:    q.Get(i, "drop_zone"),
			EndZone:     q.Get(i, "end_zone"),
			Action:      q.Get(i, "action"),
		})
	}
	return out
}

func (q *QueueFile) ChargingRequests() []ChargingRequest {
	out := make([]ChargingRequest, 0, len(q.Rows))
	for i := range q.Rows {
		out = append(out, ChargingRequest{
			Row:          i,
			DeviceID:     q.Get(i, "device_id"),
			ChargingZone: q.Get(i, "charging_zone"),
			Action:       q.Get(i, "action"),
		})
	}
	return out
}

// PendingCount - action이 create_task인 행 수
func (q *QueueFile) PendingCount() int {
	n := 0
	for i := range q.Rows {
		if q.Get(i, "action") == ActionCreateTask {
			n++
		}
	}
	return n
}

// MigrateChargingSchema - 예전 2열 스키마(charging_zone,action)에 빈 device_id 열 삽입
func (q *QueueFile) MigrateChargingSchema() (bool, error) {
	if columnIndex(q.Header, "device_id") >= 0 {
		return false, nil
	}
	if columnIndex(q.Header, "charging_zone") < 0 || columnIndex(q.Header, "action") < 0 {
		return false, fmt.Errorf("%w: unrecognised charging queue header %v in %s", ErrValidation, q.Header, q.Path)
	}
	q.Header = append([]string{"device_id"}, q.Header...)
	for i, r := range q.Rows {
		q.Rows[i] = append([]string{""}, r...)
	}
	return true, nil
}

// PendingPickupRows - 맵 픽업 큐의 미처리 행 수 (파일 없으면 0)
func PendingPickupRows(dataDir, mapID string) (int, error) {
	q, err := LoadQueue(PickupQueuePath(dataDir, mapID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return q.PendingCount(), nil
}

// AppendChargingRequest - 충전 요청 큐에 행 추가
// 같은 디바이스의 미처리 요청이 이미 있으면 추가하지 않고 false.
func AppendChargingRequest(dataDir, mapID, deviceID, zone string) (bool, error) {
	path := ChargingQueuePath(dataDir, mapID)
	q, err := LoadQueue(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		q = &QueueFile{Path: path, MapID: mapID, Header: append([]string(nil), chargingQueueHeader...)}
	case err != nil:
		return false, err
	case len(q.Header) == 0:
		q.Header = append([]string(nil), chargingQueueHeader...)
	default:
		if _, err := q.MigrateChargingSchema(); err != nil {
			return false, err
		}
	}

	for _, r := range q.ChargingRequests() {
		if r.Action == ActionCreateTask && r.DeviceID == deviceID {
			return false, nil
		}
	}
	q.Append(map[string]string{
		"device_id":     deviceID,
		"charging_zone": zone,
		"action":        ActionCreateTask,
	})
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, err
	}
	return true, q.Save()
}

// AppendPickupRequest - 픽업 요청 큐에 행 추가 (헤더 없으면 생성)
func AppendPickupRequest(dataDir, mapID string, req PickupRequest) error {
	path := PickupQueuePath(dataDir, mapID)
	q, err := LoadQueue(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		q = &QueueFile{Path: path, MapID: mapID, Header: append([]string(nil), pickupQueueHeader...)}
	case err != nil:
		return err
	case len(q.Header) == 0:
		q.Header = append([]string(nil), pickupQueueHeader...)
	}
	if req.Action == "" {
		req.Action = ActionCreateTask
	}
	q.Append(map[string]string{
		"stop_id":       req.StopID,
		"check_stop_id": req.CheckStopID,
		"drop_stop_id":  req.DropStopID,
		"end_stop_id":   req.EndStopID,
		"drop_zone":     req.DropZone,
		"end_zone":      req.EndZone,
		"action":        req.Action,
	})
	return q.Save()
}
