package services

import (
	"errors"
	"os"
	"strings"
	"testing"
	"wms-backend/algorithms"
	"wms-backend/models"
)

func countRows(rows [][]string, want ...string) int {
	n := 0
	for _, r := range rows {
		if strings.Join(r, ",") == strings.Join(want, ",") {
			n++
		}
	}
	return n
}

func TestCompilePathStoringVisitsAllStops(t *testing.T) {
	env := newTestEnv(t)
	planner := env.deps.Planner
	offset := 0.0

	rows, cmds, err := planner.CompilePath(PathRequest{
		MapID:            "m1",
		Pairs:            algorithms.Pairs([]string{"1", "2", "3"}),
		InitialDirection: "east",
		TaskType:         models.TaskTypeStoring,
		InitialOffsetM:   &offset,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(cmds) == 0 {
		t.Fatal("no commands")
	}
	if strings.Join(rows[0], ",") != "command,value,unit" || strings.Join(rows[1], ",") != "HOMING,ALL" {
		t.Errorf("unexpected header rows %v %v", rows[0], rows[1])
	}
	if n := countRows(rows, "CALL", "STORE"); n != 2 {
		t.Errorf("expected 2 store callbacks, got %d", n)
	}
	if countRows(rows, "SL", "1000", "MM") != 1 || countRows(rows, "SR", "1500", "MM") != 1 {
		t.Errorf("lateral moves missing:\n%v", rows)
	}
	// 이미 동쪽을 보고 있으므로 회전 없음
	for _, c := range cmds {
		if c.Op == algorithms.OpPVTL || c.Op == algorithms.OpPVTR {
			t.Errorf("unexpected pivot %v", c.Row())
		}
	}
	if last := rows[len(rows)-1]; strings.Join(last, ",") != "RETURN" {
		t.Errorf("last row = %v", last)
	}
}

func TestCompilePathCharging(t *testing.T) {
	env := newTestEnv(t)
	rows, _, err := env.deps.Planner.CompilePath(PathRequest{
		MapID:    "m1",
		Pairs:    []algorithms.Pair{{From: "1", To: "3"}},
		TaskType: models.TaskTypeCharging,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if countRows(rows, "CALL", "CHARGING") != 1 || countRows(rows, "LABEL", "CHARGING") != 1 {
		t.Errorf("charging trailer missing:\n%v", rows)
	}
	// 충전 경로는 정차 지점 콜백을 만들지 않는다
	if countRows(rows, "CALL", "PICKUP")+countRows(rows, "CALL", "STORE") != 0 {
		t.Errorf("charging route should not visit stops")
	}
}

func TestCompilePathErrors(t *testing.T) {
	env := newTestEnv(t)
	p := env.deps.Planner

	if _, _, err := p.CompilePath(PathRequest{MapID: "m1"}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty pairs: expected ErrValidation, got %v", err)
	}
	if _, _, err := p.CompilePath(PathRequest{MapID: "m1", Pairs: []algorithms.Pair{{From: "1", To: "9"}}}); !errors.Is(err, ErrUnreachable) {
		t.Errorf("unknown zone: expected ErrUnreachable, got %v", err)
	}
	if _, _, err := p.CompilePath(PathRequest{MapID: "nope", Pairs: []algorithms.Pair{{From: "1", To: "2"}}}); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("unknown map: expected ErrMapNotFound, got %v", err)
	}
}

func TestPlanPickingWritesFile(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "1", 80)

	path, err := env.deps.Planner.PlanPicking(PickingPlanRequest{
		DeviceID:    "DEV001",
		MapID:       "m1",
		PickupRacks: []string{"R2"},
		DropZone:    "1",
	})
	if err != nil {
		t.Fatalf("plan picking: %v", err)
	}
	if path != env.files.PathFile("DEV001") {
		t.Errorf("path = %s", path)
	}
	_, rows, err := readCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if countRows(rows, "CALL", "PICKUP") != 1 || countRows(rows, "CALL", "DROP") != 1 {
		t.Errorf("expected one pickup and one drop:\n%v", rows)
	}

	if _, err := env.deps.Planner.PlanPicking(PickingPlanRequest{DeviceID: "DEV001", MapID: "m1", PickupStops: []string{"S1"}}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing drop zone: expected ErrValidation, got %v", err)
	}
}

func TestPlanChargingFromDeviceLocation(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "1", 20)

	path, err := env.deps.Planner.PlanCharging("DEV001", "m1", "3", "east", "")
	if err != nil {
		t.Fatalf("plan charging: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "CALL,CHARGING") {
		t.Errorf("charging call missing:\n%s", raw)
	}
	if _, err := env.deps.Planner.PlanCharging("DEV001", "m1", "", "", ""); !errors.Is(err, ErrNoChargingZone) {
		t.Errorf("expected ErrNoChargingZone, got %v", err)
	}
}

func TestPlanPickingUnreachableLeg(t *testing.T) {
	cases := []struct {
		name string
		req  PickingPlanRequest
	}{
		{"unknown drop zone", PickingPlanRequest{PickupStops: []string{"S1"}, DropZone: "99"}},
		{"start zone off the map", PickingPlanRequest{PickupStops: []string{"S2"}, DropZone: "1", CurrentZone: "9"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.addDevice(t, "DEV001", "1", 80)
			tc.req.DeviceID, tc.req.MapID = "DEV001", "m1"

			if _, err := env.deps.Planner.PlanPicking(tc.req); !errors.Is(err, ErrUnreachable) {
				t.Fatalf("expected ErrUnreachable, got %v", err)
			}
			if _, err := os.Stat(env.files.PathFile("DEV001")); !os.IsNotExist(err) {
				t.Errorf("no route file should be written, stat err = %v", err)
			}
		})
	}
}

func TestPlanStopTourUnreachableLeg(t *testing.T) {
	cases := []struct {
		name string
		req  TourPlanRequest
	}{
		{"unknown end zone", TourPlanRequest{EndZone: "99"}},
		{"start zone off the map", TourPlanRequest{CurrentZone: "9"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.addDevice(t, "DEV001", "1", 80)
			tc.req.DeviceID, tc.req.MapID = "DEV001", "m1"
			tc.req.PickupStop, tc.req.CheckStop, tc.req.DropStop, tc.req.EndStop = "S1", "S2", "S1", "S2"

			if _, err := env.deps.Planner.PlanStopTour(tc.req); !errors.Is(err, ErrUnreachable) {
				t.Fatalf("expected ErrUnreachable, got %v", err)
			}
			if _, err := os.Stat(env.files.PathFile("DEV001")); !os.IsNotExist(err) {
				t.Errorf("no route file should be written, stat err = %v", err)
			}
		})
	}
}
