package algorithms

import (
	"reflect"
	"testing"
)

func TestSerializeWithLogic(t *testing.T) {
	cmds := []Command{Align("1", "0"), Forward(1000)}
	logic := map[string][][]string{
		SectionPickup: ParseLogicLines("VMOV,100,20\n\nCALL,GRIP\n"),
	}
	got := Serialize(cmds, TaskTypePicking, logic)
	want := [][]string{
		{"command", "value", "unit"},
		{"HOMING", "ALL"},
		{"ALIGN", "1", "0", "0"},
		{"F", "1000", "MM"},
		{},
		{"LABEL", "PICKUP"},
		{"VMOV", "100", "20"},
		{"CALL", "GRIP"},
		{"RETURN"},
		{},
		{"LABEL", "DROP"},
		{"RETURN"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestSerializeCharging(t *testing.T) {
	got := Serialize([]Command{Call(CallCharging)}, "Charging", nil)
	want := [][]string{
		{"command", "value", "unit"},
		{"HOMING", "ALL"},
		{"CALL", "CHARGING"},
		{},
		{"LABEL", "CHARGING"},
		{"RETURN"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}
