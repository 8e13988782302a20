package algorithms

import "testing"

func TestResolveTurnCardinals(t *testing.T) {
	cardinals := []Direction{North, South, East, West}
	for _, cur := range cardinals {
		for _, tgt := range cardinals {
			turn, ok := ResolveTurn(cur, tgt)
			switch {
			case cur == tgt:
				if ok {
					t.Errorf("%s→%s: expected no turn, got %+v", cur, tgt, turn)
				}
			case opposite(cur, tgt):
				if !ok || turn != (Turn{Op: OpPVTR, Degrees: 180}) {
					t.Errorf("%s→%s: expected PVTR 180, got %+v", cur, tgt, turn)
				}
			default:
				if !ok || turn.Degrees != 90 || (turn.Op != OpPVTL && turn.Op != OpPVTR) {
					t.Errorf("%s→%s: expected a 90 degree turn, got %+v", cur, tgt, turn)
				}
			}
		}
	}
}

func TestResolveTurnTable(t *testing.T) {
	cases := []struct {
		cur, tgt Direction
		want     Turn
	}{
		{North, West, Turn{OpPVTL, 90}},
		{North, East, Turn{OpPVTR, 90}},
		{South, East, Turn{OpPVTL, 90}},
		{South, West, Turn{OpPVTR, 90}},
		{East, North, Turn{OpPVTL, 90}},
		{East, South, Turn{OpPVTR, 90}},
		{West, South, Turn{OpPVTL, 90}},
		{West, North, Turn{OpPVTR, 90}},
	}
	for _, c := range cases {
		got, ok := ResolveTurn(c.cur, c.tgt)
		if !ok || got != c.want {
			t.Errorf("%s→%s: got %+v, want %+v", c.cur, c.tgt, got, c.want)
		}
	}
}

func TestResolveTurnDiagonals(t *testing.T) {
	cases := []struct {
		cur, tgt Direction
		want     Turn
	}{
		{North, NorthEast, Turn{OpPVTR, 45}},
		{North, NorthWest, Turn{OpPVTL, 45}},
		{East, SouthWest, Turn{OpPVTR, 135}},
		{NorthEast, SouthWest, Turn{OpPVTR, 180}},
		{SouthEast, North, Turn{OpPVTL, 135}},
	}
	for _, c := range cases {
		got, ok := ResolveTurn(c.cur, c.tgt)
		if !ok || got != c.want {
			t.Errorf("%s→%s: got %+v, want %+v", c.cur, c.tgt, got, c.want)
		}
	}
}

func TestResolveTurnUnknownDefaultsRight90(t *testing.T) {
	got, ok := ResolveTurn(North, Direction("up"))
	if !ok || got != (Turn{OpPVTR, 90}) {
		t.Fatalf("got %+v, want PVTR 90", got)
	}
}

func TestParseDirection(t *testing.T) {
	if d := ParseDirection("  North-East "); d != NorthEast {
		t.Fatalf("got %q", d)
	}
	if d := ParseDirection("WEST"); d != West {
		t.Fatalf("got %q", d)
	}
}
