package services

import (
	"path/filepath"
	"testing"
	"time"
	"wms-backend/models"
)

// lineTopology - 1 ⇄ 2 ⇄ 3 (동서 방향, 10m), S1은 1→2, S2는 2→3 위, 충전 존 3
func lineTopology(mapID string) models.Topology {
	return models.Topology{
		Map: models.Map{MapID: mapID, Name: mapID},
		Connections: []models.ZoneConnection{
			{ID: 1, FromZone: "1", ToZone: "2", Magnitude: 10, Direction: "east"},
			{ID: 2, FromZone: "2", ToZone: "1", Magnitude: 10, Direction: "west"},
			{ID: 3, FromZone: "2", ToZone: "3", Magnitude: 10, Direction: "east"},
			{ID: 4, FromZone: "3", ToZone: "2", Magnitude: 10, Direction: "west"},
		},
		Stops: []models.Stop{
			{StopID: "S1", ZoneConnectionID: 1, DistanceFromStart: 5, StopType: "left", LeftBinsCount: 2, LeftBinsDistance: 1},
			{StopID: "S2", ZoneConnectionID: 3, DistanceFromStart: 5, StopType: "right", RightBinsCount: 2, RightBinsDistance: 1.5},
		},
		Racks: []models.Rack{
			{RackID: "R2", ZoneName: "2", StopID: "S2", RackDistanceMM: 300},
		},
		ChargingZones: []models.ChargingZone{{Zone: "3"}},
	}
}

type testEnv struct {
	deps    Deps
	store   *Store
	files   *DeviceFiles
	dataDir string
	now     time.Time
}

// newTestEnv - 임시 sqlite DB + 임시 큐/디바이스 디렉터리
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	gdb, err := OpenSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := NewStore(gdb)
	if err := store.ImportTopology(lineTopology("m1")); err != nil {
		t.Fatalf("import topology: %v", err)
	}

	env := &testEnv{
		store:   store,
		files:   NewDeviceFiles(filepath.Join(dir, "device_logs")),
		dataDir: filepath.Join(dir, "queues"),
		now:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	env.deps = Deps{
		Store:    store,
		Files:    env.files,
		Planner:  NewPathPlanner(store, env.files),
		Finder:   NewPathFinder(store),
		Triggers: NewTriggerQueue(),
		DataDir:  env.dataDir,
		Policy:   DefaultPolicy(),
		Now:      func() time.Time { return env.now },
	}
	return env
}

func (e *testEnv) addDevice(t *testing.T, id, location string, battery float64) {
	t.Helper()
	d := &models.Device{
		DeviceID:        id,
		Status:          models.DeviceStatusWorking,
		BatteryLevel:    battery,
		CurrentMap:      "m1",
		CurrentLocation: location,
	}
	if err := e.store.UpsertDevice(d); err != nil {
		t.Fatalf("upsert device %s: %v", id, err)
	}
}

func (e *testEnv) addTask(t *testing.T, taskID, taskType, status, deviceID string) *models.Task {
	t.Helper()
	task := &models.Task{
		TaskID:           taskID,
		TaskName:         taskID,
		TaskType:         taskType,
		Status:           status,
		AssignedDeviceID: deviceID,
		MapID:            "m1",
		CreatedAt:        e.now,
	}
	if err := e.store.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
