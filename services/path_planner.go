package services

import (
	"fmt"
	"log"
	"strings"
	"wms-backend/algorithms"
	"wms-backend/models"
)

// ErrUnreachable - 구간 사이에 경로가 없음
var ErrUnreachable = algorithms.ErrUnreachable

const defaultDirection = algorithms.North

// PathRequest - 존 구간 시퀀스 경로 계획 요청
type PathRequest struct {
	DeviceID         string            `json:"device_id"`
	MapID            string            `json:"map_id"`
	Pairs            []algorithms.Pair `json:"pairs"`
	InitialDirection string            `json:"initial_direction"`
	TaskType         string            `json:"task_type"`
	StopIDs          []string          `json:"stop_ids"`
	RackIDs          []string          `json:"rack_ids"`
	DropZone         string            `json:"drop_zone"`
	InitialOffsetM   *float64          `json:"initial_offset_m"` // nil이면 디바이스 로그에서
}

// PickingPlanRequest - 다중 정차 피킹 요청
type PickingPlanRequest struct {
	DeviceID         string   `json:"device_id"`
	MapID            string   `json:"map_id"`
	PickupStops      []string `json:"pickup_stops"`
	PickupRacks      []string `json:"pickup_racks"`
	DropZone         string   `json:"drop_zone"`
	InitialDirection string   `json:"initial_direction"`
	CurrentZone      string   `json:"current_zone"`
}

// TourPlanRequest - 4-stop (pickup/check/drop/end) 순회 요청
type TourPlanRequest struct {
	DeviceID         string              `json:"device_id"`
	MapID            string              `json:"map_id"`
	PickupStop       string              `json:"pickup_stop"`
	CheckStop        string              `json:"check_stop"`
	DropStop         string              `json:"drop_stop"`
	EndStop          string              `json:"end_stop"`
	EndZone          string              `json:"end_zone"`
	SelectedRacks    map[string][]string `json:"selected_racks"`
	InitialDirection string              `json:"initial_direction"`
	CurrentZone      string              `json:"current_zone"`
}

// PathPlanner - 맵/디바이스 정보를 모아 명령 파일을 만든다
type PathPlanner struct {
	store *Store
	files *DeviceFiles
}

func NewPathPlanner(store *Store, files *DeviceFiles) *PathPlanner {
	return &PathPlanner{store: store, files: files}
}

// planContext - 맵 하나의 컴파일 재료
type planContext struct {
	compiler   *algorithms.Compiler
	alignment  map[string]string
	rackToStop map[string]string
	racks      map[string]algorithms.RackPick
	zones      []string
}

func (p *PathPlanner) loadMap(mapID string, includeStops bool) (*planContext, error) {
	m, err := p.store.GetMap(mapID)
	if err != nil {
		return nil, err
	}
	conns, err := p.store.Connections(mapID)
	if err != nil {
		return nil, err
	}
	var stops []algorithms.Stop
	if includeStops {
		rows, err := p.store.Stops(mapID)
		if err != nil {
			return nil, err
		}
		stops = toStops(rows)
	}
	alignment, err := p.store.Alignment(mapID)
	if err != nil {
		return nil, err
	}
	racks, err := p.store.RacksForMap(m.Name)
	if err != nil {
		return nil, err
	}

	graph := algorithms.NewZoneGraph(toEdges(conns))
	ctx := &planContext{
		compiler:   algorithms.NewCompiler(graph, stops),
		alignment:  alignment,
		rackToStop: make(map[string]string),
		racks:      make(map[string]algorithms.RackPick),
		zones:      graph.Zones(),
	}
	for _, r := range racks {
		if r.RackID == "" || r.StopID == "" {
			continue
		}
		ctx.rackToStop[r.RackID] = r.StopID
		ctx.racks[r.RackID] = algorithms.RackPick{RackID: r.RackID, DistanceMM: r.RackDistanceMM}
	}
	return ctx, nil
}

// racksByStop - 선택된 랙 id → stop별 RackPick
func (ctx *planContext) racksByStop(rackIDs []string) map[string][]algorithms.RackPick {
	out := make(map[string][]algorithms.RackPick)
	for _, rid := range rackIDs {
		rid = strings.TrimSpace(rid)
		sid, ok := ctx.rackToStop[rid]
		if !ok {
			continue
		}
		out[sid] = append(out[sid], ctx.racks[rid])
	}
	return out
}

func (ctx *planContext) checkReachable(pairs []algorithms.Pair) error {
	g := ctx.compiler.Graph()
	for _, pr := range pairs {
		if _, ok := g.Edge(pr.From, pr.To); ok {
			continue
		}
		if len(g.ShortestPath(pr.From, pr.To)) < 2 {
			return fmt.Errorf("%w: %s→%s", ErrUnreachable, pr.From, pr.To)
		}
	}
	return nil
}

func (p *PathPlanner) speeds(deviceID string) algorithms.Speeds {
	d, err := p.store.GetDevice(deviceID)
	if err != nil {
		return algorithms.Speeds{}
	}
	return algorithms.Speeds{Forward: d.ForwardSpeed, Turning: d.TurningSpeed, Vertical: d.VerticalSpeed}
}

// startZone - 지정값 → 디바이스 로그 위치 → 디바이스 레코드 위치 → 가장 작은 존
func (p *PathPlanner) startZone(deviceID, override string, zones []string) string {
	if override != "" {
		return override
	}
	if st, ok := p.files.LatestState(deviceID); ok && st.CurrentLocation != "" {
		return st.CurrentLocation
	}
	if d, err := p.store.GetDevice(deviceID); err == nil && d.CurrentLocation != "" {
		return d.CurrentLocation
	}
	return algorithms.SmallestZone(zones)
}

func direction(s string) algorithms.Direction {
	if d := algorithms.ParseDirection(s); d != "" {
		return d
	}
	return defaultDirection
}

// CompilePath - 명령 리스트와 직렬화된 행 (파일은 쓰지 않음)
func (p *PathPlanner) CompilePath(req PathRequest) ([][]string, []algorithms.Command, error) {
	if len(req.Pairs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one zone pair is required", ErrValidation)
	}
	taskType := strings.ToLower(req.TaskType)
	isCharging := taskType == models.TaskTypeCharging

	ctx, err := p.loadMap(req.MapID, !isCharging)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.checkReachable(req.Pairs); err != nil {
		return nil, nil, err
	}

	var filter map[string]bool
	if len(req.StopIDs) > 0 || len(req.RackIDs) > 0 {
		filter = make(map[string]bool)
		for _, sid := range req.StopIDs {
			if sid = strings.TrimSpace(sid); sid != "" {
				filter[sid] = true
			}
		}
		for _, rid := range req.RackIDs {
			if sid, ok := ctx.rackToStop[strings.TrimSpace(rid)]; ok {
				filter[sid] = true
			}
		}
	}

	offset := p.files.InitialOffsetM(req.DeviceID)
	if req.InitialOffsetM != nil {
		offset = *req.InitialOffsetM
	}

	cmds, _, err := ctx.compiler.Compile(algorithms.CompileRequest{
		Pairs:            req.Pairs,
		InitialDirection: direction(req.InitialDirection),
		InitialOffsetM:   offset,
		TaskType:         taskType,
		Alignment:        ctx.alignment,
		Speeds:           p.speeds(req.DeviceID),
		DropZone:         req.DropZone,
		RacksByStop:      ctx.racksByStop(req.RackIDs),
		StopFilter:       filter,
	})
	if err != nil {
		return nil, nil, err
	}
	if isCharging {
		cmds = append(cmds, algorithms.Call(algorithms.CallCharging))
	}

	rows := algorithms.Serialize(cmds, taskType, p.files.Logic(req.DeviceID))
	return rows, cmds, nil
}

// PlanAndWrite - 경로를 컴파일해서 path_<device>.csv로 쓴다
func (p *PathPlanner) PlanAndWrite(req PathRequest) (string, error) {
	rows, _, err := p.CompilePath(req)
	if err != nil {
		return "", err
	}
	return p.write(req.DeviceID, rows)
}

// PlanPicking - 정차 지점마다 drop 존으로 왕복하는 피킹 경로
func (p *PathPlanner) PlanPicking(req PickingPlanRequest) (string, error) {
	if req.DropZone == "" {
		return "", fmt.Errorf("%w: drop_zone is required", ErrValidation)
	}
	ctx, err := p.loadMap(req.MapID, true)
	if err != nil {
		return "", err
	}

	stops := append([]string(nil), req.PickupStops...)
	for _, rid := range req.PickupRacks {
		sid, ok := ctx.rackToStop[strings.TrimSpace(rid)]
		if ok && !contains(stops, sid) {
			stops = append(stops, sid)
		}
	}

	cmds, _, err := ctx.compiler.CompilePicking(algorithms.PickingRequest{
		StartZone:        p.startZone(req.DeviceID, req.CurrentZone, ctx.zones),
		Stops:            stops,
		DropZone:         req.DropZone,
		InitialDirection: direction(req.InitialDirection),
		Alignment:        ctx.alignment,
		Speeds:           p.speeds(req.DeviceID),
		RacksByStop:      ctx.racksByStop(req.PickupRacks),
	})
	if err != nil {
		return "", err
	}

	rows := algorithms.Serialize(cmds, models.TaskTypePicking, p.files.Logic(req.DeviceID))
	return p.write(req.DeviceID, rows)
}

// PlanStopTour - pickup → check → drop → end 순회
func (p *PathPlanner) PlanStopTour(req TourPlanRequest) (string, error) {
	ctx, err := p.loadMap(req.MapID, true)
	if err != nil {
		return "", err
	}

	var rackIDs []string
	for _, ids := range req.SelectedRacks {
		rackIDs = append(rackIDs, ids...)
	}

	cmds, _, err := ctx.compiler.CompileTour(algorithms.TourRequest{
		StartZone: p.startZone(req.DeviceID, req.CurrentZone, ctx.zones),
		Visits: []algorithms.TourVisit{
			{StopID: req.PickupStop, Action: algorithms.CallPickup},
			{StopID: req.CheckStop, Action: algorithms.CallAudit},
			{StopID: req.DropStop, Action: algorithms.CallDrop},
			{StopID: req.EndStop, Action: ""},
		},
		EndZone:          req.EndZone,
		InitialDirection: direction(req.InitialDirection),
		Alignment:        ctx.alignment,
		Speeds:           p.speeds(req.DeviceID),
		RacksByStop:      ctx.racksByStop(rackIDs),
	})
	if err != nil {
		return "", err
	}

	rows := algorithms.Serialize(cmds, models.TaskTypePicking, p.files.Logic(req.DeviceID))
	return p.write(req.DeviceID, rows)
}

// PlanCharging - 현재 위치 → 충전 존, 끝에 CALL CHARGING
func (p *PathPlanner) PlanCharging(deviceID, mapID, zone, initialDirection, currentZone string) (string, error) {
	if zone == "" {
		return "", ErrNoChargingZone
	}
	ctx, err := p.loadMap(mapID, false)
	if err != nil {
		return "", err
	}
	start := p.startZone(deviceID, currentZone, ctx.zones)

	var cmds []algorithms.Command
	if start != zone {
		pairs := []algorithms.Pair{{From: start, To: zone}}
		if err := ctx.checkReachable(pairs); err != nil {
			return "", err
		}
		cmds, _, err = ctx.compiler.Compile(algorithms.CompileRequest{
			Pairs:            pairs,
			InitialDirection: direction(initialDirection),
			InitialOffsetM:   p.files.InitialOffsetM(deviceID),
			TaskType:         models.TaskTypeCharging,
			Alignment:        ctx.alignment,
			Speeds:           p.speeds(deviceID),
			StopFilter:       map[string]bool{},
		})
		if err != nil {
			return "", err
		}
	}
	cmds = append(cmds, algorithms.Call(algorithms.CallCharging))

	rows := algorithms.Serialize(cmds, models.TaskTypeCharging, nil)
	return p.write(deviceID, rows)
}

func (p *PathPlanner) write(deviceID string, rows [][]string) (string, error) {
	path := p.files.PathFile(deviceID)
	if err := WriteRows(path, rows); err != nil {
		return "", fmt.Errorf("경로 파일 쓰기 실패: %w", err)
	}
	log.Printf("💾 경로 파일 작성: %s (%d행)", path, len(rows))
	return path, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
