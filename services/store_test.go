package services

import (
	"errors"
	"testing"
	"wms-backend/models"
)

func TestImportTopologyRejectsDuplicateStop(t *testing.T) {
	env := newTestEnv(t)

	topo := lineTopology("m2")
	topo.Stops = append(topo.Stops, models.Stop{StopID: "S1", ZoneConnectionID: 3, DistanceFromStart: 2})
	if err := env.store.ImportTopology(topo); !errors.Is(err, ErrDuplicateStop) {
		t.Fatalf("expected ErrDuplicateStop, got %v", err)
	}
	if _, err := env.store.GetMap("m2"); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("rejected map should not be stored, got %v", err)
	}
}

func TestImportTopologyValidation(t *testing.T) {
	cases := map[string]func(*models.Topology){
		"missing map id":     func(tp *models.Topology) { tp.Map.MapID = "" },
		"negative magnitude": func(tp *models.Topology) { tp.Connections[0].Magnitude = -1 },
		"unknown connection": func(tp *models.Topology) { tp.Stops[0].ZoneConnectionID = 99 },
		"rack on unknown stop": func(tp *models.Topology) {
			tp.Racks = append(tp.Racks, models.Rack{RackID: "RX", StopID: "SX"})
		},
	}
	for name, mutate := range cases {
		topo := lineTopology("m3")
		mutate(&topo)
		if err := ValidateTopology(topo); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestImportTopologyReplacesMap(t *testing.T) {
	env := newTestEnv(t)

	topo := lineTopology("m1")
	topo.Stops = topo.Stops[:1]
	topo.Racks = nil
	topo.Connections[0].Direction = "East"
	if err := env.store.ImportTopology(topo); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	stops, err := env.store.Stops("m1")
	if err != nil || len(stops) != 1 {
		t.Fatalf("expected 1 stop after re-import, got %d (%v)", len(stops), err)
	}
	conn, err := env.store.Connection(stops[0].ZoneConnectionID)
	if err != nil {
		t.Fatalf("stop connection not remapped: %v", err)
	}
	if conn.FromZone != "1" || conn.ToZone != "2" || conn.Direction != "east" {
		t.Errorf("unexpected connection %+v", conn)
	}
	if _, err := env.store.FindStop("m1", "S2"); !errors.Is(err, ErrStopNotFound) {
		t.Errorf("old stop should be gone, got %v", err)
	}
}

func TestImportTopologyRenameDropsOldRacks(t *testing.T) {
	env := newTestEnv(t)

	topo := lineTopology("m1")
	topo.Map.Name = "Line A"
	topo.Racks = []models.Rack{{RackID: "R1", ZoneName: "1", StopID: "S1", RackDistanceMM: 200}}
	if err := env.store.ImportTopology(topo); err != nil {
		t.Fatalf("rename import: %v", err)
	}
	if racks, _ := env.store.RacksForMap("m1"); len(racks) != 0 {
		t.Errorf("racks under the old name should be gone: %+v", racks)
	}

	// 랙 없이 다시 이름 변경: 이전 이름의 랙도 남지 않는다
	topo.Map.Name = "Line B"
	topo.Racks = nil
	if err := env.store.ImportTopology(topo); err != nil {
		t.Fatalf("second rename: %v", err)
	}
	var count int64
	if err := env.store.DB().Model(&models.Rack{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected no racks left, got %d", count)
	}
	if m, _ := env.store.GetMap("m1"); m.Name != "Line B" {
		t.Errorf("map name = %q", m.Name)
	}
}

func TestNextTaskID(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.NextTaskID()
	if err != nil || id != "TASK0001" {
		t.Fatalf("first id = %q (%v)", id, err)
	}
	env.addTask(t, "TASK0041", models.TaskTypePicking, models.TaskStatusCompleted, "DEV001")
	env.addTask(t, "manual-7", models.TaskTypePicking, models.TaskStatusCompleted, "DEV001")
	if id, _ := env.store.NextTaskID(); id != "TASK0042" {
		t.Errorf("next id = %q, want TASK0042", id)
	}
}

func TestBusyDevicesIncludesAdditionalDevices(t *testing.T) {
	env := newTestEnv(t)
	task := env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusRunning, "DEV001")
	if err := env.store.UpdateTask(task.TaskID, map[string]interface{}{"assigned_device_ids": "DEV001,DEV003"}); err != nil {
		t.Fatal(err)
	}
	env.addTask(t, "TASK0002", models.TaskTypePicking, models.TaskStatusCompleted, "DEV002")

	busy, err := env.store.BusyDevices()
	if err != nil {
		t.Fatal(err)
	}
	if !busy["DEV001"] || !busy["DEV003"] || busy["DEV002"] {
		t.Errorf("unexpected busy set %v", busy)
	}
}

func TestUpdateDeviceNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.store.UpdateDevice("GHOST", map[string]interface{}{"battery_level": 50})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
