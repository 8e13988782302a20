package algorithms

import "strings"

// Direction - 엣지/디바이스 방향
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"

	NorthEast Direction = "northeast"
	NorthWest Direction = "northwest"
	SouthEast Direction = "southeast"
	SouthWest Direction = "southwest"
)

// Turn - 회전 명령 (PVTR/PVTL + 각도)
type Turn struct {
	Op      Opcode
	Degrees int
}

// ParseDirection - 대소문자/공백 정규화 ("north-east", "north_east" 허용)
func ParseDirection(s string) Direction {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	return Direction(s)
}

// heading - 나침반 각도 (북=0, 시계방향)
func heading(d Direction) (int, bool) {
	switch d {
	case North:
		return 0, true
	case NorthEast:
		return 45, true
	case East:
		return 90, true
	case SouthEast:
		return 135, true
	case South:
		return 180, true
	case SouthWest:
		return 225, true
	case West:
		return 270, true
	case NorthWest:
		return 315, true
	}
	return 0, false
}

// leftOf / rightOf - 90도 회전 테이블
func leftOf(d Direction) Direction {
	switch d {
	case North:
		return West
	case South:
		return East
	case East:
		return North
	case West:
		return South
	}
	return ""
}

func rightOf(d Direction) Direction {
	switch d {
	case North:
		return East
	case South:
		return West
	case East:
		return South
	case West:
		return North
	}
	return ""
}

func opposite(a, b Direction) bool {
	switch a {
	case North:
		return b == South
	case South:
		return b == North
	case East:
		return b == West
	case West:
		return b == East
	}
	return false
}

// ResolveTurn - 현재 방향에서 목표 방향으로의 회전
// 회전이 필요 없으면 (Turn{}, false). 해석할 수 없는 방향은 PVTR 90으로 처리한다.
func ResolveTurn(current, target Direction) (Turn, bool) {
	if current == target {
		return Turn{}, false
	}
	if opposite(current, target) {
		return Turn{Op: OpPVTR, Degrees: 180}, true
	}
	if leftOf(current) == target {
		return Turn{Op: OpPVTL, Degrees: 90}, true
	}
	if rightOf(current) == target {
		return Turn{Op: OpPVTR, Degrees: 90}, true
	}

	// 대각선이 섞인 경우 각도 차이로 계산
	from, ok1 := heading(current)
	to, ok2 := heading(target)
	if !ok1 || !ok2 {
		return Turn{Op: OpPVTR, Degrees: 90}, true
	}
	delta := ((to-from)%360 + 360) % 360
	switch {
	case delta == 0:
		return Turn{}, false
	case delta <= 180:
		return Turn{Op: OpPVTR, Degrees: delta}, true
	default:
		return Turn{Op: OpPVTL, Degrees: 360 - delta}, true
	}
}
