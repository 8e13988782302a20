package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"wms-backend/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix - NATS subject: warehouse.tasks.<map_id>.<event>
const SubjectPrefix = "warehouse.tasks"

// BroadcastFunc - WebSocket 허브로 전달
type BroadcastFunc func(msg models.WebSocketMessage)

// EventPublisher - 작업 이벤트를 웹 클라이언트 / NATS / 이벤트 로그로 전달
type EventPublisher struct {
	mu        sync.RWMutex
	broadcast BroadcastFunc
	nc        *nats.Conn
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// SetBroadcast - WebSocket 허브 연결
func (p *EventPublisher) SetBroadcast(fn BroadcastFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = fn
}

// ConnectNATS - NATS_URL이 설정된 경우에만 호출
func (p *EventPublisher) ConnectNATS(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("wms-backend"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("⚠️ NATS 연결 끊김: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("✅ NATS 재연결")
		}),
	)
	if err != nil {
		return fmt.Errorf("NATS 연결 실패: %w", err)
	}

	p.mu.Lock()
	p.nc = nc
	p.mu.Unlock()
	log.Printf("✅ NATS 연결 완료 (%s)", url)
	return nil
}

// Close - NATS 연결 정리
func (p *EventPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nc != nil {
		p.nc.Drain()
		p.nc = nil
	}
}

// Subject - 이벤트별 NATS subject
func Subject(mapID, event string) string {
	if mapID == "" {
		mapID = "unknown"
	}
	mapID = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(mapID)
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, mapID, event)
}

// Emit - 이벤트 전파 (실패해도 디스패치는 계속)
func (p *EventPublisher) Emit(ev models.TaskEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	LogTaskEvent(ev)

	if p == nil {
		return
	}
	p.mu.RLock()
	broadcast, nc := p.broadcast, p.nc
	p.mu.RUnlock()

	if broadcast != nil {
		broadcast(models.WebSocketMessage{
			Type:      ev.Event,
			Data:      ev,
			Timestamp: ev.Timestamp.UnixMilli(),
		})
	}

	if nc != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("❌ 이벤트 직렬화 실패: %v", err)
			return
		}
		if err := nc.Publish(Subject(ev.MapID, ev.Event), data); err != nil {
			log.Printf("⚠️ NATS 발행 실패 (%s): %v", ev.Event, err)
		}
	}
}
