package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trigger - 지연 실행 트리거 (due 시각에 디바이스 작업 큐에 Status 추가)
type Trigger struct {
	ID       string    `json:"id"`
	Due      time.Time `json:"due"`
	DeviceID string    `json:"device_id"`
	TaskID   string    `json:"task_id"`
	Status   string    `json:"status"`
}

// TriggerQueue - 디스패처가 매 패스마다 확인하는 예약 큐
// 프로세스가 종료되면 예약은 사라진다.
type TriggerQueue struct {
	mu    sync.Mutex
	items []Trigger // Due 오름차순
}

func NewTriggerQueue() *TriggerQueue {
	return &TriggerQueue{}
}

// Schedule - 트리거 예약
func (q *TriggerQueue) Schedule(due time.Time, deviceID, taskID, status string) Trigger {
	t := Trigger{
		ID:       uuid.New().String(),
		Due:      due,
		DeviceID: deviceID,
		TaskID:   taskID,
		Status:   status,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	i := sort.Search(len(q.items), func(i int) bool { return q.items[i].Due.After(due) })
	q.items = append(q.items, Trigger{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = t
	return t
}

// Due - now 이전에 도래한 트리거를 꺼낸다
func (q *TriggerQueue) Due(now time.Time) []Trigger {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.items) && !q.items[n].Due.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]Trigger, n)
	copy(due, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return due
}

// Cancel - 작업의 남은 트리거 제거, 제거한 개수 반환
func (q *TriggerQueue) Cancel(taskID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, t := range q.items {
		if t.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	q.items = kept
	return removed
}

// Pending - 대기 중 트리거 복사본
func (q *TriggerQueue) Pending() []Trigger {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Trigger, len(q.items))
	copy(out, q.items)
	return out
}

func (q *TriggerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
