package algorithms

import "container/heap"

// Edge - 존 간 방향성 연결
type Edge struct {
	ID        uint      `json:"id"`
	From      string    `json:"from_zone"`
	To        string    `json:"to_zone"`
	DistanceM float64   `json:"distance_m"`
	Direction Direction `json:"direction"`
}

type edgeKey struct{ from, to string }

// ZoneGraph - 맵 하나의 인접 리스트
type ZoneGraph struct {
	adj    map[string][]Edge
	direct map[edgeKey]Edge
}

func NewZoneGraph(edges []Edge) *ZoneGraph {
	g := &ZoneGraph{
		adj:    make(map[string][]Edge),
		direct: make(map[edgeKey]Edge),
	}
	for _, e := range edges {
		g.AddEdge(e)
	}
	return g
}

// AddEdge - 같은 (from,to)가 다시 들어오면 직접 조회는 마지막 것을 사용
func (g *ZoneGraph) AddEdge(e Edge) {
	g.adj[e.From] = append(g.adj[e.From], e)
	g.direct[edgeKey{e.From, e.To}] = e
}

// Neighbors - zone에서 나가는 엣지
func (g *ZoneGraph) Neighbors(zone string) []Edge {
	return g.adj[zone]
}

// Edge - 직접 연결 조회
func (g *ZoneGraph) Edge(from, to string) (Edge, bool) {
	e, ok := g.direct[edgeKey{from, to}]
	return e, ok
}

// Zones - 그래프에 등장하는 모든 존
func (g *ZoneGraph) Zones() []string {
	seen := make(map[string]bool)
	var zones []string
	for _, edges := range g.adj {
		for _, e := range edges {
			for _, z := range []string{e.From, e.To} {
				if !seen[z] {
					seen[z] = true
					zones = append(zones, z)
				}
			}
		}
	}
	return zones
}

type searchNode struct {
	zone   string
	g      float64
	f      float64
	parent *searchNode
	index  int
}

type priorityQueue []*searchNode

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].f < pq[j].f
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := len(*pq)
	node := x.(*searchNode)
	node.index = n
	*pq = append(*pq, node)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[0 : n-1]
	return node
}

// heuristic - 존 좌표가 없으므로 항상 0 (Dijkstra와 동일)
func heuristic(a, b string) float64 {
	return 0
}

// ShortestPath - start → goal 존 시퀀스, 도달 불가면 nil
func (g *ZoneGraph) ShortestPath(start, goal string) []string {
	node := g.search(start, goal)
	if node == nil {
		return nil
	}
	return reconstructPath(node)
}

// PathDistance - 최단 경로 거리 (미터)
func (g *ZoneGraph) PathDistance(start, goal string) (float64, bool) {
	node := g.search(start, goal)
	if node == nil {
		return 0, false
	}
	return node.g, true
}

func (g *ZoneGraph) search(start, goal string) *searchNode {
	if start == goal {
		return &searchNode{zone: start}
	}

	openSet := make(priorityQueue, 0)
	heap.Init(&openSet)
	heap.Push(&openSet, &searchNode{zone: start, f: heuristic(start, goal)})

	best := map[string]float64{start: 0}
	closed := make(map[string]bool)

	for openSet.Len() > 0 {
		current := heap.Pop(&openSet).(*searchNode)
		if current.zone == goal {
			return current
		}
		if closed[current.zone] {
			continue
		}
		closed[current.zone] = true

		for _, e := range g.Neighbors(current.zone) {
			if closed[e.To] {
				continue
			}
			tentative := current.g + e.DistanceM
			if existing, ok := best[e.To]; ok && tentative >= existing {
				continue
			}
			best[e.To] = tentative
			heap.Push(&openSet, &searchNode{
				zone:   e.To,
				g:      tentative,
				f:      tentative + heuristic(e.To, goal),
				parent: current,
			})
		}
	}
	return nil
}

func reconstructPath(n *searchNode) []string {
	var path []string
	for n != nil {
		path = append([]string{n.zone}, path...)
		n = n.parent
	}
	return path
}
