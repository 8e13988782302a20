package services

import (
	"testing"
	"wms-backend/models"
)

// fakeFinder - (from,to) → 거리, 없으면 도달 불가
type fakeFinder map[[2]string]float64

func (f fakeFinder) Distance(_, from, to string) float64 {
	if from == to {
		return 0
	}
	if d, ok := f[[2]string{from, to}]; ok {
		return d
	}
	return UnreachableDistance
}

func TestEligibleDevices(t *testing.T) {
	devices := []models.Device{
		{DeviceID: "A", CurrentMap: "m1", BatteryLevel: 90},
		{DeviceID: "B", CurrentMap: "m1", BatteryLevel: 20}, // 기준값과 같으면 제외
		{DeviceID: "C", CurrentMap: "m2", BatteryLevel: 90},
		{DeviceID: "D", CurrentMap: "m1", BatteryLevel: 90},
		{DeviceID: "E", CurrentMap: "m1", BatteryLevel: 90},
	}
	got := EligibleDevices(devices, "m1", 20, map[string]bool{"D": true}, map[string]bool{"E": true})
	if len(got) != 1 || got[0].DeviceID != "A" {
		t.Fatalf("unexpected eligible set %+v", got)
	}
}

func TestSelectNearestTieBreaksOnDeviceID(t *testing.T) {
	finder := fakeFinder{{"1", "2"}: 4000, {"3", "2"}: 4000}
	candidates := []models.Device{
		{DeviceID: "DEV009", CurrentLocation: "3"},
		{DeviceID: "DEV002", CurrentLocation: "1"},
	}
	best, ok := SelectNearest(finder, "m1", candidates, "2")
	if !ok || best.Device.DeviceID != "DEV002" {
		t.Fatalf("expected DEV002 on tie, got %+v", best)
	}
	if best.Distance != 4000 {
		t.Errorf("distance = %v", best.Distance)
	}
}

func TestSelectNearestUnknownLocation(t *testing.T) {
	finder := fakeFinder{{"1", "2"}: 9000}
	candidates := []models.Device{
		{DeviceID: "A", CurrentLocation: ""},
		{DeviceID: "B", CurrentLocation: "1"},
	}
	best, _ := SelectNearest(finder, "m1", candidates, "2")
	if best.Device.DeviceID != "B" {
		t.Fatalf("device without location should lose, got %s", best.Device.DeviceID)
	}

	// 모두 도달 불가여도 한 대는 고른다
	best, ok := SelectNearest(finder, "m1", []models.Device{{DeviceID: "X", CurrentLocation: "9"}}, "2")
	if !ok || best.Distance != UnreachableDistance {
		t.Fatalf("expected sentinel distance, got %+v", best)
	}
}

func TestLowestBattery(t *testing.T) {
	d, ok := LowestBattery([]models.Device{
		{DeviceID: "B", BatteryLevel: 35},
		{DeviceID: "A", BatteryLevel: 35},
		{DeviceID: "C", BatteryLevel: 60},
	})
	if !ok || d.DeviceID != "A" {
		t.Fatalf("expected A, got %+v", d)
	}
	if _, ok := LowestBattery(nil); ok {
		t.Fatal("empty input should report false")
	}
}
