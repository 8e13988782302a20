package algorithms

import (
	"math"
	"sort"
	"strings"
)

// Stop - 엣지 위의 정차 지점
type Stop struct {
	StopID             string  `json:"stop_id"`
	Name               string  `json:"name"`
	EdgeID             uint    `json:"zone_connection_id"`
	DistanceFromStartM float64 `json:"distance_from_start"`
	StopType           string  `json:"stop_type"` // left | right | center | ""
	LeftBinsCount      int     `json:"left_bins_count"`
	RightBinsCount     int     `json:"right_bins_count"`
	LeftBinsDistanceM  float64 `json:"left_bins_distance"`
	RightBinsDistanceM float64 `json:"right_bins_distance"`
	RackID             string  `json:"rack_id"`
	RackDistanceMM     float64 `json:"rack_distance_mm"`
}

// RackPick - 정차 지점에서 집을 랙 (수직 이동 거리 mm)
type RackPick struct {
	RackID     string  `json:"rack_id"`
	DistanceMM float64 `json:"rack_distance_mm"`
}

func (s Stop) stopType() string {
	return strings.ToLower(strings.TrimSpace(s.StopType))
}

// Side - 명시된 stop_type 우선, 없으면 추론
func (s Stop) Side() string {
	switch t := s.stopType(); t {
	case "left", "right":
		return t
	}
	return InferSide(s)
}

// SideDistanceM - 측면 이동 거리 (center면 0)
func (s Stop) SideDistanceM() float64 {
	if s.stopType() == "center" {
		return 0
	}
	if s.Side() == "left" {
		return s.LeftBinsDistanceM
	}
	return s.RightBinsDistanceM
}

// InferSide - 빈 개수 → 이름의 left/right → 기본 right
func InferSide(s Stop) string {
	if s.LeftBinsCount > 0 && s.RightBinsCount == 0 {
		return "left"
	}
	if s.RightBinsCount > 0 && s.LeftBinsCount == 0 {
		return "right"
	}
	id := strings.ToLower(s.StopID)
	name := strings.ToLower(s.Name)
	if strings.Contains(id, "left") || strings.Contains(name, "left") {
		return "left"
	}
	if strings.Contains(id, "right") || strings.Contains(name, "right") {
		return "right"
	}
	return "right"
}

// SortStops - distance_from_start 오름차순 (같으면 입력 순서 유지)
func SortStops(stops []Stop) {
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].DistanceFromStartM < stops[j].DistanceFromStartM
	})
}

// StopCallbacks - 정차 지점에서 실행할 작업 콜백 설정
type StopCallbacks struct {
	TaskType      string
	VerticalSpeed *int
	RacksByStop   map[string][]RackPick
	// stop_id → CALL 대상. 값이 ""이면 콜백 없음
	Actions map[string]string
}

func defaultAction(taskType string) string {
	switch strings.ToLower(taskType) {
	case "picking":
		return CallPickup
	case "storing", "store":
		return CallStore
	case "auditing", "audit":
		return CallAudit
	}
	return ""
}

func (cb StopCallbacks) commandsAt(stop Stop) []Command {
	action := defaultAction(cb.TaskType)
	if a, ok := cb.Actions[stop.StopID]; ok {
		action = a
	}
	switch action {
	case "":
		return nil
	case CallPickup:
		return cb.pickupCommands(stop)
	}
	return []Command{Call(action)}
}

func (cb StopCallbacks) pickupCommands(stop Stop) []Command {
	racks := cb.RacksByStop[stop.StopID]
	vs := 0
	if cb.VerticalSpeed != nil {
		vs = *cb.VerticalSpeed
	}
	if len(racks) == 0 || vs <= 0 {
		return []Command{Call(CallPickup)}
	}

	var cmds []Command
	for _, r := range racks {
		mm := int(math.Round(r.DistanceMM))
		if mm > 0 {
			cmds = append(cmds, VerticalMove(mm, vs), Call(CallPickup), VerticalMove(mm, vs))
		} else {
			cmds = append(cmds, Call(CallPickup))
		}
	}
	return cmds
}

// SequenceEdge - 엣지 하나를 offsetM부터 끝까지 주행하며 정차 지점 처리
// stops는 SortStops로 정렬되어 있어야 한다.
func SequenceEdge(edge Edge, current Direction, offsetM float64, stops []Stop, cb StopCallbacks) ([]Command, Direction) {
	var cmds []Command

	if t, ok := ResolveTurn(current, edge.Direction); ok {
		cmds = append(cmds, Align(edge.From, "0"), Pivot(t))
		current = edge.Direction
	}

	traveled := math.Max(0, offsetM)
	total := math.Max(0, edge.DistanceM)
	forwardTo := func(target float64) {
		target = math.Min(math.Max(0, target), total)
		if delta := target - traveled; delta > 0 {
			cmds = append(cmds, Forward(MM(delta)))
			traveled += delta
		}
	}

	for _, stop := range stops {
		forwardTo(stop.DistanceFromStartM)

		if d := stop.SideDistanceM(); d > 0 {
			mm := MM(d)
			if stop.Side() == "left" {
				cmds = append(cmds, Side(OpSL, mm), Side(OpSR, mm))
			} else {
				cmds = append(cmds, Side(OpSR, mm), Side(OpSL, mm))
			}
		}

		cmds = append(cmds, cb.commandsAt(stop)...)
	}

	forwardTo(total)
	return cmds, current
}
