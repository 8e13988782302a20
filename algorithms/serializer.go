package algorithms

import "strings"

// 커스텀 로직 섹션 키
const (
	SectionPickup = "PICKUP"
	SectionDrop   = "DROP"
)

// Serialize - 명령 리스트 → CSV 행
// logic은 섹션(PICKUP/DROP)별로 LABEL 아래에 그대로 끼워 넣을 행들
func Serialize(cmds []Command, taskType string, logic map[string][][]string) [][]string {
	rows := [][]string{
		{"command", "value", "unit"},
		{string(OpHoming), "ALL"},
	}
	for _, c := range cmds {
		rows = append(rows, c.Row())
	}
	rows = append(rows, []string{})

	if strings.ToLower(taskType) == TaskTypeCharging {
		return append(rows,
			[]string{string(OpLabel), CallCharging},
			[]string{string(OpReturn)},
		)
	}

	rows = append(rows, []string{string(OpLabel), SectionPickup})
	rows = append(rows, logic[SectionPickup]...)
	rows = append(rows, []string{string(OpReturn)}, []string{})
	rows = append(rows, []string{string(OpLabel), SectionDrop})
	rows = append(rows, logic[SectionDrop]...)
	return append(rows, []string{string(OpReturn)})
}

// ParseLogicLines - 커스텀 로직 파일 내용 → 행 (빈 줄 무시, 콤마 분리)
func ParseLogicLines(content string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, ","))
	}
	return rows
}
