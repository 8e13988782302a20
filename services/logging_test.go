package services

import (
	"testing"
	"time"
	"wms-backend/models"
)

func TestLogBufferPersistsEvents(t *testing.T) {
	env := newTestEnv(t)
	InitLogging(env.store.DB(), 50, time.Hour)
	defer StopLogging()

	if _, err := GetRecentLogs("", 10); err != nil {
		t.Fatalf("query before flush: %v", err)
	}

	now := time.Now()
	LogTaskEvent(models.TaskEvent{Event: models.EventTaskCreated, TaskID: "TASK0001", DeviceID: "DEV001", MapID: "m1", Timestamp: now})
	LogTaskEvent(models.TaskEvent{Event: models.EventTaskCreated, TaskID: "TASK0002", DeviceID: "DEV002", MapID: "m1", Timestamp: now})
	battery := 42.0
	LogDeviceStatus(models.DeviceStatusData{DeviceID: "DEV001", BatteryLevel: &battery, CurrentLocation: "2"})
	FlushLogs()

	all, err := GetRecentLogs("", 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("recent logs = %d (%v)", len(all), err)
	}
	mine, _ := GetRecentLogs("DEV001", 10)
	if len(mine) != 2 {
		t.Errorf("DEV001 logs = %d, want 2", len(mine))
	}

	created, _ := GetLogsByEventType("", models.EventTaskCreated, 10)
	if len(created) != 2 {
		t.Errorf("task_created logs = %d, want 2", len(created))
	}
	status, _ := GetLogsByEventType("DEV001", models.EventDeviceStatus, 10)
	if len(status) != 1 || status[0].BatteryLevel != 42 || status[0].Zone != "2" {
		t.Errorf("device_status log = %+v", status)
	}

	stats, err := GetLogStats("", 24)
	if err != nil {
		t.Fatal(err)
	}
	counts := stats["event_counts"].(map[string]int64)
	if counts[models.EventTaskCreated] != 2 || counts[models.EventDeviceStatus] != 1 {
		t.Errorf("event counts = %v", counts)
	}
}

func TestLogQueriesWithoutBuffer(t *testing.T) {
	if _, err := GetRecentLogs("", 10); err == nil {
		t.Errorf("expected error when logging is not initialised")
	}
}
