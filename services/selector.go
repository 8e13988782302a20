package services

import (
	"sort"
	"wms-backend/models"
)

// Candidate - 선택 결과 (거리 mm)
type Candidate struct {
	Device   models.Device
	Distance float64
}

// EligibleDevices - 배정 가능 디바이스
// 배터리 > threshold, 같은 맵, 활성 작업 없음, 이번 패스에 예약되지 않음
func EligibleDevices(devices []models.Device, mapID string, threshold float64, busy, reserved map[string]bool) []models.Device {
	var out []models.Device
	for _, d := range devices {
		if d.CurrentMap != mapID {
			continue
		}
		if d.BatteryLevel <= threshold {
			continue
		}
		if busy[d.DeviceID] || reserved[d.DeviceID] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SelectNearest - targetZone까지 거리가 가장 짧은 디바이스
// device_id 순으로 정렬한 뒤 처음 만난 최솟값을 택하므로 동률이면 device_id가 작은 쪽이 이긴다.
func SelectNearest(finder DistanceFinder, mapID string, candidates []models.Device, targetZone string) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	ordered := append([]models.Device(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DeviceID < ordered[j].DeviceID })

	var best Candidate
	found := false
	for _, d := range ordered {
		dist := UnreachableDistance
		if d.CurrentLocation != "" {
			dist = finder.Distance(mapID, d.CurrentLocation, targetZone)
			if dist == 0 && d.CurrentLocation != targetZone {
				dist = UnreachableDistance
			}
		}
		if !found || dist < best.Distance {
			best = Candidate{Device: d, Distance: dist}
			found = true
		}
	}
	return best, found
}

// LowestBattery - 충전 대상: 배터리가 가장 낮은 디바이스 (동률이면 device_id 순)
func LowestBattery(devices []models.Device) (models.Device, bool) {
	if len(devices) == 0 {
		return models.Device{}, false
	}
	ordered := append([]models.Device(nil), devices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].BatteryLevel != ordered[j].BatteryLevel {
			return ordered[i].BatteryLevel < ordered[j].BatteryLevel
		}
		return ordered[i].DeviceID < ordered[j].DeviceID
	})
	return ordered[0], true
}
