package algorithms

import (
	"fmt"
	"strings"
)

const (
	TaskTypePicking  = "picking"
	TaskTypeStoring  = "storing"
	TaskTypeAuditing = "auditing"
	TaskTypeCharging = "charging"

	// TaskTypeTour - 정차 지점별 콜백을 StopActions로만 지정하는 내부 타입
	TaskTypeTour = "tour"
)

// Pair - 이동 구간 (from → to)
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Speeds - nil이면 해당 명령에 속도를 붙이지 않음
type Speeds struct {
	Forward  *int `json:"forward_speed"`
	Turning  *int `json:"turning_speed"`
	Vertical *int `json:"vertical_speed"`
}

// CompileRequest - 경로 컴파일 입력
type CompileRequest struct {
	Pairs            []Pair
	InitialDirection Direction
	InitialOffsetM   float64
	TaskType         string
	Alignment        map[string]string // zone → "Yes"/"No"
	Speeds           Speeds
	DropZone         string
	RacksByStop      map[string][]RackPick
	StopActions      map[string]string
	// nil이면 모든 정차 지점 방문
	StopFilter map[string]bool
}

// Compiler - 맵 하나의 그래프와 정차 지점으로 명령 시퀀스 생성
type Compiler struct {
	graph  *ZoneGraph
	byEdge map[uint][]Stop
}

func NewCompiler(graph *ZoneGraph, stops []Stop) *Compiler {
	byEdge := make(map[uint][]Stop)
	for _, s := range stops {
		byEdge[s.EdgeID] = append(byEdge[s.EdgeID], s)
	}
	for id := range byEdge {
		SortStops(byEdge[id])
	}
	return &Compiler{graph: graph, byEdge: byEdge}
}

func (c *Compiler) Graph() *ZoneGraph {
	return c.graph
}

func (c *Compiler) stopsOn(edgeID uint, filter map[string]bool) []Stop {
	all := c.byEdge[edgeID]
	if filter == nil {
		return all
	}
	var out []Stop
	for _, s := range all {
		if filter[s.StopID] {
			out = append(out, s)
		}
	}
	return out
}

// AlignFlag - 설정값이 y로 시작하면 "1"
func AlignFlag(alignment map[string]string, zone string) string {
	v := strings.ToLower(strings.TrimSpace(alignment[zone]))
	if strings.HasPrefix(v, "y") {
		return "1"
	}
	return "0"
}

// Compile - 존 시퀀스를 명령 리스트로 변환, 최종 방향도 함께 반환
// 어느 한 구간이라도 도달할 수 없으면 ErrUnreachable.
func (c *Compiler) Compile(req CompileRequest) ([]Command, Direction, error) {
	taskType := strings.ToLower(req.TaskType)
	isPicking := taskType == TaskTypePicking
	dropRule := isPicking && req.DropZone != ""
	cb := StopCallbacks{
		TaskType:      taskType,
		VerticalSpeed: req.Speeds.Vertical,
		RacksByStop:   req.RacksByStop,
		Actions:       req.StopActions,
	}

	var cmds []Command
	dir := req.InitialDirection
	lastArrival := ""
	droppedAtEnd := false

	traverse := func(e Edge, offset float64, lastOfPair, lastOverall bool) {
		seg, newDir := SequenceEdge(e, dir, offset, c.stopsOn(e.ID, req.StopFilter), cb)
		cmds = append(cmds, seg...)
		dir = newDir
		lastArrival = e.To

		if !lastOverall {
			cmds = append(cmds, Align(e.To, "0"))
		}
		if dropRule && lastOfPair && e.To == req.DropZone {
			if lastOverall {
				cmds = append(cmds, Align(e.To, "0"))
				droppedAtEnd = true
			}
			cmds = append(cmds, Call(CallDrop))
		}
	}

	n := len(req.Pairs)
	for i, p := range req.Pairs {
		offset := 0.0
		if i == 0 {
			offset = req.InitialOffsetM
			if offset <= 0 {
				cmds = append(cmds, Align(p.From, "0"))
			}
		}
		lastPair := i == n-1

		if e, ok := c.graph.Edge(p.From, p.To); ok {
			traverse(e, offset, true, lastPair)
			continue
		}
		if p.From == p.To {
			continue
		}

		// 직접 연결이 없으면 최단 경로로 펼친다
		path := c.graph.ShortestPath(p.From, p.To)
		if len(path) < 2 {
			return nil, req.InitialDirection, fmt.Errorf("%w: %s→%s", ErrUnreachable, p.From, p.To)
		}
		for j := 0; j+1 < len(path); j++ {
			e, ok := c.graph.Edge(path[j], path[j+1])
			if !ok {
				return nil, req.InitialDirection, fmt.Errorf("%w: %s→%s", ErrUnreachable, path[j], path[j+1])
			}
			subOffset := 0.0
			if j == 0 {
				subOffset = offset
			}
			lastSub := j+2 == len(path)
			traverse(e, subOffset, lastSub, lastPair && lastSub)
		}
	}

	if lastArrival != "" {
		if !droppedAtEnd {
			cmds = append(cmds, Align(lastArrival, "0"))
		}
		if isPicking && req.DropZone == "" {
			cmds = append(cmds, Call(CallDrop))
		}
	}

	if !isPicking && taskType != TaskTypeTour {
		if t, ok := ResolveTurn(dir, req.InitialDirection); ok {
			cmds = append(cmds, Pivot(t))
			dir = req.InitialDirection
		}
	}

	cmds = CanonicalizeAligns(cmds, req.Alignment)
	return ApplySpeeds(cmds, req.Speeds), dir, nil
}

// CanonicalizeAligns - 같은 존에 대한 연속 ALIGN을 하나로 합치고 플래그를 다시 계산
func CanonicalizeAligns(cmds []Command, alignment map[string]string) []Command {
	out := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Op != OpAlign {
			out = append(out, c)
			continue
		}
		zone := c.Zone()
		canonical := Align(zone, AlignFlag(alignment, zone))
		if k := len(out) - 1; k >= 0 && out[k].Op == OpAlign && out[k].Zone() == zone {
			out[k] = canonical
			continue
		}
		out = append(out, canonical)
	}
	return out
}

// ApplySpeeds - F에는 전진 속도, PVTR/PVTL/SR/SL에는 회전 속도
func ApplySpeeds(cmds []Command, s Speeds) []Command {
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		switch {
		case c.Op == OpF && s.Forward != nil:
			out[i] = c.withSpeed(*s.Forward)
		case (c.Op == OpPVTR || c.Op == OpPVTL || c.Op == OpSR || c.Op == OpSL) && s.Turning != nil:
			out[i] = c.withSpeed(*s.Turning)
		default:
			out[i] = c
		}
	}
	return out
}

// Pairs - 존 시퀀스 → 연속 구간
func Pairs(zones []string) []Pair {
	var pairs []Pair
	for i := 0; i+1 < len(zones); i++ {
		pairs = append(pairs, Pair{From: zones[i], To: zones[i+1]})
	}
	return pairs
}
