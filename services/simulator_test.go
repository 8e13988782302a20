package services

import (
	"testing"
	"time"
	"wms-backend/models"
)

func setDetails(t *testing.T, env *testEnv, task *models.Task, d models.TaskDetails) {
	t.Helper()
	if err := task.SetDetails(d); err != nil {
		t.Fatal(err)
	}
	if err := env.store.UpdateTask(task.TaskID, map[string]interface{}{"task_details": task.TaskDetails}); err != nil {
		t.Fatal(err)
	}
}

func TestSimulatorRunsTaskToCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "1", 90)
	task := env.addTask(t, "TASK0001", models.TaskTypePicking, models.TaskStatusPending, "DEV001")
	setDetails(t, env, task, models.TaskDetails{PickupStops: []string{"S1"}, DropZone: "2"})

	_ = env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskPending)
	sim := NewDeviceSimulator(env.store, env.files, time.Second, nil)

	// pending 상태의 피킹 작업은 run_task 전까지 움직이지 않는다
	sim.Step()
	if st, _ := env.files.LatestTaskStatus("DEV001", "TASK0001"); st != models.DeviceTaskPending {
		t.Fatalf("status = %q before run_task", st)
	}

	_ = env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskRun)
	sim.Step()
	if st, _ := env.files.LatestTaskStatus("DEV001", "TASK0001"); st != models.DeviceTaskExecuting {
		t.Fatalf("status = %q, want executing", st)
	}

	for i := 0; i < simExecuteTicks; i++ {
		sim.Step()
	}
	if st, _ := env.files.LatestTaskStatus("DEV001", "TASK0001"); st != models.DeviceTaskCompleted {
		t.Fatalf("status = %q, want completed", st)
	}

	dev, _ := env.store.GetDevice("DEV001")
	if dev.CurrentLocation != "2" {
		t.Errorf("device should end at drop zone, got %q", dev.CurrentLocation)
	}
	if dev.BatteryLevel > 90 {
		t.Errorf("battery should not rise while working: %v", dev.BatteryLevel)
	}
}

func TestSimulatorChargesUntilFull(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "DEV001", "2", 80)
	task := env.addTask(t, "TASK0001", models.TaskTypeCharging, models.TaskStatusPending, "DEV001")
	setDetails(t, env, task, models.TaskDetails{ChargingZone: "3"})
	_ = env.files.AppendTaskStatus("DEV001", "TASK0001", models.DeviceTaskPending)

	var reports int
	sim := NewDeviceSimulator(env.store, env.files, time.Second, func(msg models.WebSocketMessage) {
		if msg.Type == models.MessageTypeDeviceStatus {
			reports++
		}
	})

	sim.Step() // 충전 시작
	sim.Step() // 95
	sim.Step() // 100 → 완료

	if st, _ := env.files.LatestTaskStatus("DEV001", "TASK0001"); st != models.DeviceTaskCompleted {
		t.Fatalf("status = %q, want completed", st)
	}
	dev, _ := env.store.GetDevice("DEV001")
	if dev.BatteryLevel != 100 || dev.CurrentLocation != "3" {
		t.Errorf("device = %v%% at %q", dev.BatteryLevel, dev.CurrentLocation)
	}
	if reports != 2 {
		t.Errorf("device_status reports = %d, want 2", reports)
	}
}
