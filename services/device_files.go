package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"wms-backend/algorithms"
)

var taskQueueHeader = []string{"task_id", "task_status"}

var deviceLogHeader = []string{"timestamp", "right_drive", "left_drive", "right_motor", "left_motor", "current_location"}

// DeviceState - <device_id>.csv 마지막 행
type DeviceState struct {
	Timestamp       string
	RightDriveMM    float64
	LeftDriveMM     float64
	RightMotor      float64
	LeftMotor       float64
	CurrentLocation string
}

// DeviceFiles - 디바이스별 파일 (작업 큐 / 상태 로그 / 커스텀 로직 / 경로)
type DeviceFiles struct {
	dir string
	mu  sync.Mutex
}

func NewDeviceFiles(dir string) *DeviceFiles {
	return &DeviceFiles{dir: dir}
}

func (f *DeviceFiles) Dir() string {
	return f.dir
}

func (f *DeviceFiles) TaskQueuePath(deviceID string) string {
	return filepath.Join(f.dir, deviceID+"_task.csv")
}

func (f *DeviceFiles) StatePath(deviceID string) string {
	return filepath.Join(f.dir, deviceID+".csv")
}

func (f *DeviceFiles) PathFile(deviceID string) string {
	return filepath.Join(f.dir, "path_"+deviceID+".csv")
}

// AppendTaskStatus - 작업 큐에 한 줄 추가 (파일이 없으면 헤더부터)
func (f *DeviceFiles) AppendTaskStatus(deviceID, taskID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendCSVRow(f.TaskQueuePath(deviceID), taskQueueHeader, []string{taskID, status})
}

// LatestTaskStatus - task_id와 일치하는 마지막 행의 상태 (없으면 "")
func (f *DeviceFiles) LatestTaskStatus(deviceID, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	header, rows, err := readCSV(f.TaskQueuePath(deviceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	idCol, statusCol := columnIndex(header, "task_id"), columnIndex(header, "task_status")
	if idCol < 0 || statusCol < 0 {
		return "", nil
	}
	latest := ""
	for _, r := range rows {
		if field(r, idCol) == taskID {
			latest = field(r, statusCol)
		}
	}
	return latest, nil
}

// TaskQueue - 작업 큐 전체 (task_id, task_status)
func (f *DeviceFiles) TaskQueue(deviceID string) ([][2]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	header, rows, err := readCSV(f.TaskQueuePath(deviceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	idCol, statusCol := columnIndex(header, "task_id"), columnIndex(header, "task_status")
	out := make([][2]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, [2]string{field(r, idCol), field(r, statusCol)})
	}
	return out, nil
}

// LatestState - 디바이스 상태 로그의 마지막 행
func (f *DeviceFiles) LatestState(deviceID string) (DeviceState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	header, rows, err := readCSV(f.StatePath(deviceID))
	if err != nil || len(rows) == 0 {
		return DeviceState{}, false
	}
	last := rows[len(rows)-1]
	get := func(name string) string { return field(last, columnIndex(header, name)) }
	return DeviceState{
		Timestamp:       get("timestamp"),
		RightDriveMM:    parseFloat(get("right_drive")),
		LeftDriveMM:     parseFloat(get("left_drive")),
		RightMotor:      parseFloat(get("right_motor")),
		LeftMotor:       parseFloat(get("left_motor")),
		CurrentLocation: get("current_location"),
	}, true
}

// AppendState - 디바이스 상태 로그 추가
func (f *DeviceFiles) AppendState(deviceID string, st DeviceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st.Timestamp == "" {
		st.Timestamp = time.Now().Format(time.RFC3339)
	}
	row := []string{
		st.Timestamp,
		formatFloat(st.RightDriveMM),
		formatFloat(st.LeftDriveMM),
		formatFloat(st.RightMotor),
		formatFloat(st.LeftMotor),
		st.CurrentLocation,
	}
	return appendCSVRow(f.StatePath(deviceID), deviceLogHeader, row)
}

// InitialOffsetM - right_drive(mm) → 미터
func (f *DeviceFiles) InitialOffsetM(deviceID string) float64 {
	st, ok := f.LatestState(deviceID)
	if !ok {
		return 0
	}
	return st.RightDriveMM / 1000
}

// Logic - <device>_PICKUP_Logic.csv / <device>_DROP_Logic.csv
func (f *DeviceFiles) Logic(deviceID string) map[string][][]string {
	out := make(map[string][][]string)
	for _, section := range []string{algorithms.SectionPickup, algorithms.SectionDrop} {
		data, err := os.ReadFile(filepath.Join(f.dir, fmt.Sprintf("%s_%s_Logic.csv", deviceID, section)))
		if err != nil {
			continue
		}
		if rows := algorithms.ParseLogicLines(string(data)); len(rows) > 0 {
			out[section] = rows
		}
	}
	return out
}

// WriteRows - 임시 파일에 쓴 뒤 rename (기존 파일은 통째로 교체)
func WriteRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func appendCSVRow(path string, header, row []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// readCSV - 첫 줄은 헤더, 열 수가 다른 행 허용
func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFloat - 파싱 실패는 0
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
