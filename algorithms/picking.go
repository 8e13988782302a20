package algorithms

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	ErrNoPickupStops = errors.New("no valid pickup stops or racks provided")
	ErrEmptyRoute    = errors.New("could not generate any path commands")
	ErrUnreachable   = errors.New("no path between zones")
)

// Leg - 정차 지점 하나를 위한 연속 구간
type Leg struct {
	StopID string
	Pairs  []Pair
}

// PickingRequest - 다중 정차 피킹 입력 (Stops는 이미 stop_id로 해석된 값)
type PickingRequest struct {
	StartZone        string
	Stops            []string
	DropZone         string
	InitialDirection Direction
	Alignment        map[string]string
	Speeds           Speeds
	RacksByStop      map[string][]RackPick
}

// TourVisit - 4-stop 순회의 방문 지점과 콜백
type TourVisit struct {
	StopID string
	Action string // CALL 대상, ""이면 콜백 없음
}

// TourRequest - 순서가 정해진 정차 지점 순회
type TourRequest struct {
	StartZone        string
	Visits           []TourVisit
	EndZone          string
	InitialDirection Direction
	Alignment        map[string]string
	Speeds           Speeds
	RacksByStop      map[string][]RackPick
}

// EdgeOf - stop_id가 속한 엣지
func (c *Compiler) EdgeOf(stopID string) (Edge, bool) {
	for edgeID, stops := range c.byEdge {
		for _, s := range stops {
			if s.StopID == stopID {
				return c.edgeByID(edgeID)
			}
		}
	}
	return Edge{}, false
}

func (c *Compiler) edgeByID(id uint) (Edge, bool) {
	for _, edges := range c.graph.adj {
		for _, e := range edges {
			if e.ID == id {
				return e, true
			}
		}
	}
	return Edge{}, false
}

// BuildPickingLegs - [last→from], from→to, [to→drop] 구간을 정차 지점마다 생성
// 각 구간 뒤에는 항상 drop 존으로 돌아온다.
func (c *Compiler) BuildPickingLegs(start string, stops []string, dropZone string) []Leg {
	var legs []Leg
	last := start
	for _, sid := range stops {
		e, ok := c.EdgeOf(sid)
		if !ok {
			continue
		}
		var pairs []Pair
		if last != "" && last != e.From {
			pairs = append(pairs, Pair{From: last, To: e.From})
		}
		pairs = append(pairs, Pair{From: e.From, To: e.To})
		if e.To != dropZone {
			pairs = append(pairs, Pair{From: e.To, To: dropZone})
		}
		legs = append(legs, Leg{StopID: sid, Pairs: pairs})
		last = dropZone
	}
	return legs
}

// CompilePicking - 정차 지점마다 피킹 구간을 컴파일해서 이어 붙인다
func (c *Compiler) CompilePicking(req PickingRequest) ([]Command, Direction, error) {
	if len(req.Stops) == 0 {
		return nil, req.InitialDirection, ErrNoPickupStops
	}
	legs := c.BuildPickingLegs(req.StartZone, req.Stops, req.DropZone)
	if len(legs) == 0 {
		return nil, req.InitialDirection, ErrNoPickupStops
	}

	var all []Command
	dir := req.InitialDirection
	for _, leg := range legs {
		cmds, next, err := c.Compile(CompileRequest{
			Pairs:            leg.Pairs,
			InitialDirection: dir,
			TaskType:         TaskTypePicking,
			Alignment:        req.Alignment,
			Speeds:           req.Speeds,
			DropZone:         req.DropZone,
			RacksByStop:      req.RacksByStop,
			StopFilter:       map[string]bool{leg.StopID: true},
		})
		if err != nil {
			return nil, dir, fmt.Errorf("leg for %s: %w", leg.StopID, err)
		}
		all = appendLeg(all, cmds)
		dir = next
	}
	if len(all) == 0 {
		return nil, dir, ErrEmptyRoute
	}
	return all, dir, nil
}

// CompileTour - 지정된 순서대로 정차 지점을 방문하고 EndZone에서 끝낸다
func (c *Compiler) CompileTour(req TourRequest) ([]Command, Direction, error) {
	if len(req.Visits) == 0 {
		return nil, req.InitialDirection, ErrNoPickupStops
	}

	var legs []CompileRequest
	last := req.StartZone
	for _, v := range req.Visits {
		e, ok := c.EdgeOf(v.StopID)
		if !ok {
			continue
		}
		var pairs []Pair
		if last != "" && last != e.From {
			pairs = append(pairs, Pair{From: last, To: e.From})
		}
		pairs = append(pairs, Pair{From: e.From, To: e.To})
		legs = append(legs, CompileRequest{
			Pairs:       pairs,
			StopFilter:  map[string]bool{v.StopID: true},
			StopActions: map[string]string{v.StopID: v.Action},
		})
		last = e.To
	}
	if len(legs) == 0 {
		return nil, req.InitialDirection, ErrNoPickupStops
	}
	if req.EndZone != "" && req.EndZone != last {
		legs = append(legs, CompileRequest{
			Pairs:      []Pair{{From: last, To: req.EndZone}},
			StopFilter: map[string]bool{},
		})
	}

	var all []Command
	dir := req.InitialDirection
	for _, leg := range legs {
		leg.InitialDirection = dir
		leg.TaskType = TaskTypeTour
		leg.Alignment = req.Alignment
		leg.Speeds = req.Speeds
		leg.RacksByStop = req.RacksByStop
		cmds, next, err := c.Compile(leg)
		if err != nil {
			return nil, dir, err
		}
		all = appendLeg(all, cmds)
		dir = next
	}
	if len(all) == 0 {
		return nil, dir, ErrEmptyRoute
	}
	return all, dir, nil
}

// appendLeg - 이전 구간 끝과 다음 구간 시작이 같은 존 ALIGN이면 하나 제거
func appendLeg(all, leg []Command) []Command {
	if len(all) > 0 && len(leg) > 0 {
		last, first := all[len(all)-1], leg[0]
		if last.Op == OpAlign && first.Op == OpAlign && last.Zone() == first.Zone() {
			leg = leg[1:]
		}
	}
	return append(all, leg...)
}

// SmallestZone - 숫자 존 우선, 그 다음 사전순
func SmallestZone(zones []string) string {
	if len(zones) == 0 {
		return ""
	}
	sorted := append([]string(nil), zones...)
	sort.Slice(sorted, func(i, j int) bool {
		a, aErr := strconv.Atoi(sorted[i])
		b, bErr := strconv.Atoi(sorted[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0]
}
