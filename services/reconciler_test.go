package services

import (
	"testing"
	"time"
	"wms-backend/models"
)

func pendingChargingFor(t *testing.T, env *testEnv, deviceID string) bool {
	t.Helper()
	q, err := LoadQueue(ChargingQueuePath(env.dataDir, "m1"))
	if err != nil {
		return false
	}
	for _, r := range q.ChargingRequests() {
		if r.DeviceID == deviceID && r.Action == ActionCreateTask {
			return true
		}
	}
	return false
}

func TestStatusSyncStartsAndCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "1", 90)
	env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusPending, "DEV001")
	env.deps.Triggers.Schedule(env.now.Add(7*time.Second), "DEV001", "TASK0001", models.DeviceTaskRun)

	// 다른 작업이 남아 있어 idle 충전 요청이 나오지 않게
	if err := AppendPickupRequest(env.dataDir, "m1", PickupRequest{StopID: "S1", DropZone: "2"}); err != nil {
		t.Fatal(err)
	}

	r := NewReconciler(env.deps)
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskExecuting); err != nil {
		t.Fatal(err)
	}
	sum := r.RunStatusSyncPass()
	if len(sum.Started) != 1 {
		t.Fatalf("expected start, got %+v", sum)
	}
	task, _ := env.store.GetTask("TASK0001")
	if task.Status != models.TaskStatusRunning || task.StartedAt == nil {
		t.Fatalf("task not running: %+v", task)
	}

	env.now = env.now.Add(90 * time.Second)
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskCompleted); err != nil {
		t.Fatal(err)
	}
	sum = r.RunStatusSyncPass()
	if len(sum.Completed) != 1 {
		t.Fatalf("expected completion, got %+v", sum)
	}
	task, _ = env.store.GetTask("TASK0001")
	if task.Status != models.TaskStatusCompleted || task.CompletedAt == nil {
		t.Fatalf("task not completed: %+v", task)
	}
	if task.ActualDuration != 90 {
		t.Errorf("duration = %d, want 90", task.ActualDuration)
	}
	if env.deps.Triggers.Len() != 0 {
		t.Errorf("pending trigger should be cancelled on completion")
	}
	if len(sum.ChargingRequested) != 0 || pendingChargingFor(t, env, "DEV001") {
		t.Errorf("healthy device with queued work should not be sent to charge")
	}

	// 완료된 작업은 다시 처리하지 않는다
	if again := r.RunStatusSyncPass(); len(again.Completed) != 0 {
		t.Errorf("completed task reprocessed: %+v", again)
	}
}

func TestStatusSyncIgnoresStaleFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "1", 90)
	env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusPending, "DEV001")

	// pending 상태에서 바로 task_completed는 무시 (executing을 거쳐야 한다)
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskCompleted); err != nil {
		t.Fatal(err)
	}
	sum := NewReconciler(env.deps).RunStatusSyncPass()
	if len(sum.Started)+len(sum.Completed) != 0 {
		t.Fatalf("unexpected transition: %+v", sum)
	}
}

func TestStatusSyncRequestsChargingOnLowBattery(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "2", 15)
	env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusRunning, "DEV001")

	// 큐에 작업이 남아 있어도 배터리 부족이면 충전
	if err := AppendPickupRequest(env.dataDir, "m1", PickupRequest{StopID: "S1", DropZone: "2"}); err != nil {
		t.Fatal(err)
	}
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskCompleted); err != nil {
		t.Fatal(err)
	}

	sum := NewReconciler(env.deps).RunStatusSyncPass()
	if len(sum.ChargingRequested) != 1 || sum.ChargingRequested[0] != "DEV001" {
		t.Fatalf("expected charging request, got %+v", sum)
	}
	if !pendingChargingFor(t, env, "DEV001") {
		t.Errorf("charging queue has no row for DEV001")
	}
}

func TestStatusSyncRequestsChargingWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "2", 60)
	env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusProcessing, "DEV001")
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskCompleted); err != nil {
		t.Fatal(err)
	}

	sum := NewReconciler(env.deps).RunStatusSyncPass()
	if len(sum.ChargingRequested) != 1 {
		t.Fatalf("idle device should be sent to charge, got %+v", sum)
	}

	// 같은 디바이스의 미처리 요청은 한 줄만
	added, err := AppendChargingRequest(env.dataDir, "m1", "DEV001", "3")
	if err != nil || added {
		t.Errorf("duplicate charging request added=%v err=%v", added, err)
	}
}

func TestStatusSyncReleasesChargingZone(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "3", 100)
	task := env.addTask(t, "TASK0001", models.TaskTypeCharging, models.TaskStatusRunning, "DEV001")
	if err := task.SetDetails(models.TaskDetails{ChargingZone: "3"}); err != nil {
		t.Fatal(err)
	}
	if err := env.store.UpdateTask("TASK0001", map[string]interface{}{"task_details": task.TaskDetails}); err != nil {
		t.Fatal(err)
	}
	if err := env.store.SetChargingZoneOccupancy("m1", "3", "DEV001", true); err != nil {
		t.Fatal(err)
	}
	if err := env.store.UpdateDevice("DEV001", map[string]interface{}{"status": models.DeviceStatusCharging}); err != nil {
		t.Fatal(err)
	}
	if err := env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskCompleted); err != nil {
		t.Fatal(err)
	}

	sum := NewReconciler(env.deps).RunStatusSyncPass()
	if len(sum.Completed) != 1 || len(sum.ChargingRequested) != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	zones, _ := env.store.ChargingZones("m1")
	if zones[0].Occupied {
		t.Errorf("charging zone should be released")
	}
	dev, _ := env.store.GetDevice("DEV001")
	if dev.Status != models.DeviceStatusWorking {
		t.Errorf("device status = %s", dev.Status)
	}
}
