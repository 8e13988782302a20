package algorithms

import "strconv"

// Opcode - 모터/IO 명령 코드
type Opcode string

const (
	OpHoming Opcode = "HOMING"
	OpAlign  Opcode = "ALIGN"
	OpF      Opcode = "F"
	OpSR     Opcode = "SR"
	OpSL     Opcode = "SL"
	OpPVTR   Opcode = "PVTR"
	OpPVTL   Opcode = "PVTL"
	OpCall   Opcode = "CALL"
	OpVMOV   Opcode = "VMOV"
	OpLabel  Opcode = "LABEL"
	OpReturn Opcode = "RETURN"
)

// CALL 대상
const (
	CallPickup   = "PICKUP"
	CallStore    = "STORE"
	CallAudit    = "AUDIT"
	CallDrop     = "DROP"
	CallCharging = "CHARGING"
)

// Command - 직렬화 전 중간 표현
type Command struct {
	Op       Opcode   `json:"op"`
	Operands []string `json:"operands"`
}

// Row - CSV 한 줄로 변환
func (c Command) Row() []string {
	row := make([]string, 0, len(c.Operands)+1)
	row = append(row, string(c.Op))
	return append(row, c.Operands...)
}

// Zone - ALIGN 대상 존 (ALIGN이 아니면 "")
func (c Command) Zone() string {
	if c.Op != OpAlign || len(c.Operands) == 0 {
		return ""
	}
	return c.Operands[0]
}

func (c Command) withSpeed(speed int) Command {
	ops := make([]string, len(c.Operands), len(c.Operands)+1)
	copy(ops, c.Operands)
	return Command{Op: c.Op, Operands: append(ops, strconv.Itoa(speed))}
}

// Align - ALIGN,<zone>,0,<flag>
func Align(zone, flag string) Command {
	return Command{Op: OpAlign, Operands: []string{zone, "0", flag}}
}

// Forward - F,<mm>,MM
func Forward(mm int) Command {
	return Command{Op: OpF, Operands: []string{strconv.Itoa(mm), "MM"}}
}

// Side - SR/SL,<mm>,MM
func Side(op Opcode, mm int) Command {
	return Command{Op: op, Operands: []string{strconv.Itoa(mm), "MM"}}
}

// Pivot - PVTR/PVTL,<deg>,DEG
func Pivot(t Turn) Command {
	return Command{Op: t.Op, Operands: []string{strconv.Itoa(t.Degrees), "DEG"}}
}

// Call - CALL,<target>
func Call(target string) Command {
	return Command{Op: OpCall, Operands: []string{target}}
}

// VerticalMove - VMOV,<mm>,<speed>
func VerticalMove(mm, speed int) Command {
	return Command{Op: OpVMOV, Operands: []string{strconv.Itoa(mm), strconv.Itoa(speed)}}
}

// MM - 미터 → 밀리미터 (반올림)
func MM(meters float64) int {
	if meters < 0 {
		return -int(-meters*1000 + 0.5)
	}
	return int(meters*1000 + 0.5)
}
