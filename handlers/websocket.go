package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
	"wms-backend/models"
	"wms-backend/services"

	"github.com/gofiber/websocket/v2"
)

const (
	clientTypeDevice = "device"
	clientTypeWeb    = "web"
)

type Client struct {
	Conn       *websocket.Conn
	ClientType string // "device" 또는 "web"
	DeviceID   string
}

// 클라이언트 관리자
type ClientManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan models.WebSocketMessage
	register   chan *Client
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	startedAt  time.Time
}

// 전역 클라이언트 관리자
var Manager = &ClientManager{
	clients:    make(map[*websocket.Conn]*Client),
	broadcast:  make(chan models.WebSocketMessage, 100),
	register:   make(chan *Client),
	unregister: make(chan *websocket.Conn),
	startedAt:  time.Now(),
}

// 클라이언트 관리 시작
func (manager *ClientManager) Start() {
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client.Conn] = client
			manager.mutex.Unlock()
			log.Printf("클라이언트 등록: %s (%s)", client.ClientType, client.Conn.RemoteAddr())

		case conn := <-manager.unregister:
			manager.remove(conn)

		case message := <-manager.broadcast:
			manager.handleBroadcast(message)
		}
	}
}

func (manager *ClientManager) remove(conn *websocket.Conn) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if client, ok := manager.clients[conn]; ok {
		delete(manager.clients, conn)
		_ = conn.Close()
		log.Printf("클라이언트 해제: %s (%s)", client.ClientType, conn.RemoteAddr())
	}
}

// handleBroadcast - 서버 이벤트와 디바이스 보고는 웹 클라이언트로만 전달
func (manager *ClientManager) handleBroadcast(message models.WebSocketMessage) {
	var failed []*websocket.Conn

	manager.mutex.RLock()
	for conn, client := range manager.clients {
		if client.ClientType != clientTypeWeb {
			continue
		}
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("전송 실패 (%s): %v", client.ClientType, err)
			failed = append(failed, conn)
		}
	}
	manager.mutex.RUnlock()

	for _, conn := range failed {
		manager.remove(conn)
	}
}

// 외부에서 호출할 수 있는 브로드캐스트 메서드
func (manager *ClientManager) BroadcastMessage(msg models.WebSocketMessage) {
	select {
	case manager.broadcast <- msg:
	default:
		log.Println("⚠️ broadcast 채널 가득 참")
	}
}

func (manager *ClientManager) GetClientCount() map[string]int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	count := map[string]int{
		clientTypeDevice: 0,
		clientTypeWeb:    0,
	}
	for _, client := range manager.clients {
		count[client.ClientType]++
	}
	return count
}

// SystemInfo - 허브 / 디바이스 / 트리거 현황
func (manager *ClientManager) SystemInfo() models.SystemInfo {
	counts := manager.GetClientCount()
	pending := 0
	if deps.Triggers != nil {
		pending = deps.Triggers.Len()
	}
	return models.SystemInfo{
		ConnectedClients: counts[clientTypeWeb],
		ConnectedDevices: Devices.Count(),
		PendingTriggers:  pending,
		ServerTime:       time.Now(),
		Uptime:           int64(time.Since(manager.startedAt).Seconds()),
	}
}

// decodeData - interface{} 데이터를 구조체로
func decodeData(data interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Device WebSocket Handler (/websocket/device?device_id=...)
func HandleDeviceWebSocket(c *websocket.Conn) {
	client := &Client{
		Conn:       c,
		ClientType: clientTypeDevice,
		DeviceID:   c.Query("device_id"),
	}

	Manager.register <- client
	if client.DeviceID != "" {
		_, _ = Devices.Register(client.DeviceID)
	}

	defer func() {
		Manager.unregister <- c
	}()

	for {
		var msg models.WebSocketMessage
		err := c.ReadJSON(&msg)
		if err != nil {
			log.Printf("디바이스 메시지 읽기 오류: %v", err)
			break
		}

		// 타임스탬프 추가
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}

		switch msg.Type {
		case models.MessageTypeDeviceStatus:
			var st models.DeviceStatusData
			if err := decodeData(msg.Data, &st); err != nil {
				log.Printf("⚠️ device_status 형식 오류: %v", err)
				continue
			}
			if st.DeviceID == "" {
				st.DeviceID = client.DeviceID
			}
			if err := ApplyDeviceStatus(st); err != nil {
				log.Printf("⚠️ 디바이스 상태 반영 실패 (%s): %v", st.DeviceID, err)
				continue
			}
			msg.Data = st

		case models.MessageTypeTaskFeedback:
			var fb models.TaskFeedbackData
			if err := decodeData(msg.Data, &fb); err != nil {
				log.Printf("⚠️ task_feedback 형식 오류: %v", err)
				continue
			}
			if fb.DeviceID == "" {
				fb.DeviceID = client.DeviceID
			}
			if err := ApplyTaskFeedback(fb); err != nil {
				log.Printf("⚠️ 작업 피드백 반영 실패 (%s): %v", fb.DeviceID, err)
				continue
			}
			msg.Data = fb

		default:
			log.Printf("알 수 없는 메시지 타입: %s", msg.Type)
			continue
		}

		Manager.BroadcastMessage(msg)
	}
}

// ApplyDeviceStatus - 배터리 / 위치 보고 → 저장소 + 상태 로그
func ApplyDeviceStatus(st models.DeviceStatusData) error {
	if st.DeviceID == "" {
		return services.ErrValidation
	}

	fields := map[string]interface{}{}
	if st.BatteryLevel != nil {
		fields["battery_level"] = *st.BatteryLevel
	}
	if st.CurrentMap != "" {
		fields["current_map"] = st.CurrentMap
	}
	if st.CurrentLocation != "" {
		fields["current_location"] = st.CurrentLocation
	}
	if st.Status != "" {
		fields["status"] = strings.ToLower(st.Status)
	}
	if len(fields) > 0 {
		if err := deps.Store.UpdateDevice(st.DeviceID, fields); err != nil {
			return err
		}
	}
	if st.CurrentLocation != "" {
		if err := deps.Files.AppendState(st.DeviceID, services.DeviceState{CurrentLocation: st.CurrentLocation}); err != nil {
			return err
		}
	}

	Devices.UpdateStatus(st)
	services.LogDeviceStatus(st)
	return nil
}

// ApplyTaskFeedback - executing_task / task_completed만 디바이스 작업 큐에 기록
func ApplyTaskFeedback(fb models.TaskFeedbackData) error {
	status := strings.ToLower(strings.TrimSpace(fb.TaskStatus))
	if fb.DeviceID == "" || fb.TaskID == "" {
		return services.ErrValidation
	}
	if status != models.DeviceTaskExecuting && status != models.DeviceTaskCompleted {
		return services.ErrValidation
	}
	if err := deps.Files.AppendTaskStatus(fb.DeviceID, fb.TaskID, status); err != nil {
		return err
	}
	fb.TaskStatus = status
	Devices.UpdateTask(fb)
	return nil
}

// Web 클라이언트 WebSocket Handler (이벤트 스트림)
func HandleWebClientWebSocket(c *websocket.Conn) {
	client := &Client{
		Conn:       c,
		ClientType: clientTypeWeb,
	}

	Manager.register <- client

	defer func() {
		Manager.unregister <- c
	}()

	// 연결 확인 메시지 전송
	welcomeMsg := models.WebSocketMessage{
		Type:      models.MessageTypeSystemInfo,
		Data:      Manager.SystemInfo(),
		Timestamp: time.Now().UnixMilli(),
	}
	_ = c.WriteJSON(welcomeMsg)

	for {
		var msg models.WebSocketMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("웹 메시지 읽기 오류: %v", err)
			break
		}

		// 웹 클라이언트는 system_info 요청만 보낸다
		if msg.Type == models.MessageTypeSystemInfo {
			_ = c.WriteJSON(models.WebSocketMessage{
				Type:      models.MessageTypeSystemInfo,
				Data:      Manager.SystemInfo(),
				Timestamp: time.Now().UnixMilli(),
			})
			continue
		}
		log.Printf("알 수 없는 메시지 타입: %s", msg.Type)
	}
}
