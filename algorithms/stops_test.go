package algorithms

import (
	"strconv"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestInferSide(t *testing.T) {
	cases := []struct {
		stop Stop
		want string
	}{
		{Stop{LeftBinsCount: 2}, "left"},
		{Stop{RightBinsCount: 3}, "right"},
		{Stop{LeftBinsCount: 1, RightBinsCount: 1, StopID: "S-LEFT-1"}, "left"},
		{Stop{Name: "Right aisle"}, "right"},
		{Stop{StopID: "left-right"}, "left"},
		{Stop{StopID: "S1"}, "right"},
	}
	for _, c := range cases {
		if got := InferSide(c.stop); got != c.want {
			t.Errorf("InferSide(%+v) = %s, want %s", c.stop, got, c.want)
		}
	}
}

func TestExplicitStopTypeWins(t *testing.T) {
	s := Stop{StopType: "Left", RightBinsCount: 4, LeftBinsDistanceM: 0.8, RightBinsDistanceM: 2}
	if s.Side() != "left" || s.SideDistanceM() != 0.8 {
		t.Fatalf("side=%s dist=%v", s.Side(), s.SideDistanceM())
	}
	c := Stop{StopType: "center", RightBinsDistanceM: 2}
	if c.SideDistanceM() != 0 {
		t.Fatalf("center stop must not move laterally")
	}
}

func forwardPositions(t *testing.T, offset float64, cmds []Command) []float64 {
	t.Helper()
	pos := offset
	var out []float64
	for _, c := range cmds {
		if c.Op != OpF {
			continue
		}
		mm, err := strconv.Atoi(c.Operands[0])
		if err != nil {
			t.Fatalf("bad F operand %v", c.Operands)
		}
		pos += float64(mm) / 1000
		out = append(out, pos)
	}
	return out
}

func TestSequenceEdgeMonotonic(t *testing.T) {
	edge := Edge{ID: 1, From: "1", To: "2", DistanceM: 8, Direction: East}
	stops := []Stop{
		{StopID: "a", EdgeID: 1, DistanceFromStartM: 6},
		{StopID: "b", EdgeID: 1, DistanceFromStartM: 2},
		{StopID: "c", EdgeID: 1, DistanceFromStartM: 12},
		{StopID: "d", EdgeID: 1, DistanceFromStartM: -1},
	}
	SortStops(stops)

	for _, offset := range []float64{0, 3, 9} {
		cmds, _ := SequenceEdge(edge, East, offset, stops, StopCallbacks{TaskType: TaskTypeAuditing})
		prev := offset
		for _, p := range forwardPositions(t, offset, cmds) {
			if p < prev {
				t.Fatalf("offset %v: moved backwards %v → %v", offset, prev, p)
			}
			if p > edge.DistanceM+1e-9 && offset <= edge.DistanceM {
				t.Fatalf("offset %v: exceeded edge length: %v", offset, p)
			}
			prev = p
		}
	}
}

func TestSequenceEdgeLateralPairs(t *testing.T) {
	edge := Edge{ID: 1, From: "1", To: "2", DistanceM: 10, Direction: North}
	stops := []Stop{
		{StopID: "L", EdgeID: 1, DistanceFromStartM: 2, StopType: "left", LeftBinsDistanceM: 0.75},
		{StopID: "R", EdgeID: 1, DistanceFromStartM: 4, RightBinsCount: 1, RightBinsDistanceM: 1.2},
		{StopID: "C", EdgeID: 1, DistanceFromStartM: 6, StopType: "center", RightBinsDistanceM: 3},
		{StopID: "Z", EdgeID: 1, DistanceFromStartM: 8, StopType: "right"},
	}
	cmds, _ := SequenceEdge(edge, North, 0, stops, StopCallbacks{})

	var lateral []Command
	for _, c := range cmds {
		if c.Op == OpSL || c.Op == OpSR {
			lateral = append(lateral, c)
		}
	}
	if len(lateral) != 4 {
		t.Fatalf("expected 2 lateral pairs, got %v", lateral)
	}
	if lateral[0].Op != OpSL || lateral[1].Op != OpSR || lateral[0].Operands[0] != "750" || lateral[1].Operands[0] != "750" {
		t.Errorf("left pair wrong: %v %v", lateral[0], lateral[1])
	}
	if lateral[2].Op != OpSR || lateral[3].Op != OpSL || lateral[2].Operands[0] != "1200" || lateral[3].Operands[0] != "1200" {
		t.Errorf("right pair wrong: %v %v", lateral[2], lateral[3])
	}
}

func TestPickupRackVerticalMoves(t *testing.T) {
	edge := Edge{ID: 1, From: "1", To: "2", DistanceM: 5, Direction: East}
	stops := []Stop{{StopID: "S1", EdgeID: 1, DistanceFromStartM: 1, StopType: "center"}}
	cb := StopCallbacks{
		TaskType:      TaskTypePicking,
		VerticalSpeed: intPtr(40),
		RacksByStop: map[string][]RackPick{
			"S1": {{RackID: "R1", DistanceMM: 350.4}, {RackID: "R2", DistanceMM: 0}},
		},
	}
	cmds, _ := SequenceEdge(edge, East, 0, stops, cb)

	want := [][]string{
		{"F", "1000", "MM"},
		{"VMOV", "350", "40"},
		{"CALL", "PICKUP"},
		{"VMOV", "350", "40"},
		{"CALL", "PICKUP"},
		{"F", "4000", "MM"},
	}
	assertRows(t, cmds, want)

	cb.VerticalSpeed = nil
	cmds, _ = SequenceEdge(edge, East, 0, stops, cb)
	assertRows(t, cmds, [][]string{{"F", "1000", "MM"}, {"CALL", "PICKUP"}, {"F", "4000", "MM"}})
}

func TestStopActionOverride(t *testing.T) {
	edge := Edge{ID: 1, From: "1", To: "2", DistanceM: 3, Direction: East}
	stops := []Stop{{StopID: "S1", EdgeID: 1, DistanceFromStartM: 1, StopType: "center"}}
	cmds, _ := SequenceEdge(edge, East, 0, stops, StopCallbacks{
		TaskType: TaskTypeTour,
		Actions:  map[string]string{"S1": CallAudit},
	})
	assertRows(t, cmds, [][]string{{"F", "1000", "MM"}, {"CALL", "AUDIT"}, {"F", "2000", "MM"}})
}
