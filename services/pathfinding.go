package services

import (
	"fmt"
	"wms-backend/algorithms"
	"wms-backend/models"
)

// UnreachableDistance - 경로가 없을 때 쓰는 거리 (mm)
const UnreachableDistance = 999999.0

// DistanceFinder - 디바이스 근접도 계산용 거리 함수
type DistanceFinder interface {
	Distance(mapID, fromZone, toZone string) float64
}

// PathFinder - 맵 그래프 위 최단 경로 거리 계산 서비스
type PathFinder struct {
	store *Store
}

// NewPathFinder - PathFinder 생성
func NewPathFinder(store *Store) *PathFinder {
	return &PathFinder{store: store}
}

// Graph - 맵의 존 그래프 구성
func (pf *PathFinder) Graph(mapID string) (*algorithms.ZoneGraph, error) {
	conns, err := pf.store.Connections(mapID)
	if err != nil {
		return nil, fmt.Errorf("연결 정보 조회 실패 (map %s): %w", mapID, err)
	}
	return algorithms.NewZoneGraph(toEdges(conns)), nil
}

// Distance - from → to 최단 거리 (mm), 도달 불가면 UnreachableDistance
func (pf *PathFinder) Distance(mapID, fromZone, toZone string) float64 {
	if fromZone == "" || toZone == "" {
		return UnreachableDistance
	}
	g, err := pf.Graph(mapID)
	if err != nil {
		return UnreachableDistance
	}
	meters, ok := g.PathDistance(fromZone, toZone)
	if !ok {
		return UnreachableDistance
	}
	return float64(algorithms.MM(meters))
}

func toEdges(conns []models.ZoneConnection) []algorithms.Edge {
	edges := make([]algorithms.Edge, 0, len(conns))
	for _, c := range conns {
		edges = append(edges, algorithms.Edge{
			ID:        c.ID,
			From:      c.FromZone,
			To:        c.ToZone,
			DistanceM: c.Magnitude,
			Direction: algorithms.ParseDirection(c.Direction),
		})
	}
	return edges
}

func toStops(stops []models.Stop) []algorithms.Stop {
	out := make([]algorithms.Stop, 0, len(stops))
	for _, s := range stops {
		out = append(out, algorithms.Stop{
			StopID:             s.StopID,
			Name:               s.Name,
			EdgeID:             s.ZoneConnectionID,
			DistanceFromStartM: s.DistanceFromStart,
			StopType:           s.StopType,
			LeftBinsCount:      s.LeftBinsCount,
			RightBinsCount:     s.RightBinsCount,
			LeftBinsDistanceM:  s.LeftBinsDistance,
			RightBinsDistanceM: s.RightBinsDistance,
			RackID:             s.RackID,
			RackDistanceMM:     s.RackDistanceMM,
		})
	}
	return out
}
