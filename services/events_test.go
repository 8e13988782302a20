package services

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
	"wms-backend/models"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	s, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestSubject(t *testing.T) {
	cases := map[[2]string]string{
		{"15", "task_created"}:     "warehouse.tasks.15.task_created",
		{"a.b c", "plan_failed"}:   "warehouse.tasks.a_b_c.plan_failed",
		{"", "charging_requested"}: "warehouse.tasks.unknown.charging_requested",
	}
	for in, want := range cases {
		if got := Subject(in[0], in[1]); got != want {
			t.Errorf("Subject(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestEventPublisherPublishesToNATS(t *testing.T) {
	s := runNATSServer(t)

	nc, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	sub, err := nc.SubscribeSync(SubjectPrefix + ".>")
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	var (
		mu        sync.Mutex
		broadcast []models.WebSocketMessage
	)
	p := NewEventPublisher()
	p.SetBroadcast(func(msg models.WebSocketMessage) {
		mu.Lock()
		broadcast = append(broadcast, msg)
		mu.Unlock()
	})
	if err := p.ConnectNATS(s.ClientURL()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Close()

	p.Emit(models.TaskEvent{
		Event:    models.EventTaskCreated,
		TaskID:   "TASK0001",
		TaskType: models.TaskTypePicking,
		DeviceID: "DEV001",
		MapID:    "m1",
	})

	msg, err := sub.NextMsg(3 * time.Second)
	if err != nil {
		t.Fatalf("no NATS message: %v", err)
	}
	if msg.Subject != "warehouse.tasks.m1.task_created" {
		t.Errorf("subject = %s", msg.Subject)
	}
	var ev models.TaskEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.TaskID != "TASK0001" || ev.EventID == "" || ev.Timestamp.IsZero() {
		t.Errorf("unexpected event %+v", ev)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(broadcast) != 1 || broadcast[0].Type != models.EventTaskCreated {
		t.Errorf("unexpected broadcast %+v", broadcast)
	}
}

func TestEventPublisherNilIsSafe(t *testing.T) {
	var p *EventPublisher
	p.Emit(models.TaskEvent{Event: models.EventTaskStatus})
}
