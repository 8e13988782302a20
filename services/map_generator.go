package services

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"
	"wms-backend/models"

	"github.com/google/uuid"
)

// GridOptions - 데모 창고 맵 크기
type GridOptions struct {
	MapID       string
	Rows        int
	Cols        int
	AisleLength float64 // 가로 통로 길이 (미터)
	CrossLength float64 // 세로 통로 길이 (미터)
	Devices     int     // 함께 등록할 데모 디바이스 수
}

// DefaultGridOptions - 3x4 격자, 디바이스 2대
func DefaultGridOptions() GridOptions {
	return GridOptions{
		MapID:       "demo",
		Rows:        3,
		Cols:        4,
		AisleLength: 10,
		CrossLength: 6,
		Devices:     2,
	}
}

// MapGenerator - 데모 창고 맵 생성기
type MapGenerator struct {
	mu           sync.RWMutex
	activeMap    *models.Topology
	generationMu sync.Mutex
	rng          *rand.Rand
}

// NewMapGenerator creates a new MapGenerator instance
func NewMapGenerator() *MapGenerator {
	return &MapGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func gridZone(opts GridOptions, row, col int) string {
	return strconv.Itoa(row*opts.Cols + col + 1)
}

// GenerateGrid - 행 우선 번호의 존 격자
// 가로 통로는 east/west, 세로 통로는 south/north 양방향 엣지.
// 동쪽 방향 가로 통로마다 정차 지점 하나와 랙 하나를 둔다.
func (mg *MapGenerator) GenerateGrid(opts GridOptions) models.Topology {
	mg.generationMu.Lock()
	defer mg.generationMu.Unlock()

	if opts.Rows < 1 {
		opts.Rows = 1
	}
	if opts.Cols < 2 {
		opts.Cols = 2
	}
	if opts.MapID == "" {
		opts.MapID = "map-" + uuid.New().String()[:8]
	}

	topo := models.Topology{
		Map: models.Map{MapID: opts.MapID, Name: opts.MapID},
	}

	var nextID uint = 1
	connect := func(from, to string, magnitude float64, dir string) uint {
		id := nextID
		nextID++
		topo.Connections = append(topo.Connections, models.ZoneConnection{
			ID:        id,
			FromZone:  from,
			ToZone:    to,
			Magnitude: magnitude,
			Direction: dir,
		})
		return id
	}

	for r := 0; r < opts.Rows; r++ {
		for c := 0; c < opts.Cols; c++ {
			zone := gridZone(opts, r, c)

			if c+1 < opts.Cols {
				east := gridZone(opts, r, c+1)
				edgeID := connect(zone, east, opts.AisleLength, "east")
				connect(east, zone, opts.AisleLength, "west")

				stopID := fmt.Sprintf("S%s-%s", zone, east)
				side := "left"
				if (r+c)%2 == 1 {
					side = "right"
				}
				bins := 0.8 + mg.rng.Float64()*0.7 // 0.8~1.5m
				stop := models.Stop{
					StopID:            stopID,
					Name:              fmt.Sprintf("aisle %s→%s", zone, east),
					ZoneConnectionID:  edgeID,
					DistanceFromStart: opts.AisleLength / 2,
					StopType:          side,
				}
				if side == "left" {
					stop.LeftBinsCount = 4
					stop.LeftBinsDistance = roundTo(bins, 2)
				} else {
					stop.RightBinsCount = 4
					stop.RightBinsDistance = roundTo(bins, 2)
				}
				topo.Stops = append(topo.Stops, stop)

				topo.Racks = append(topo.Racks, models.Rack{
					RackID:         "R" + stopID[1:],
					ZoneName:       zone,
					StopID:         stopID,
					RackDistanceMM: float64(200 + 100*mg.rng.Intn(8)),
				})
			}

			if r+1 < opts.Rows {
				south := gridZone(opts, r+1, c)
				connect(zone, south, opts.CrossLength, "south")
				connect(south, zone, opts.CrossLength, "north")
			}

			alignment := "No"
			if c == 0 {
				alignment = "Yes"
			}
			topo.Alignments = append(topo.Alignments, models.ZoneAlignment{Zone: zone, Alignment: alignment})
		}
	}

	// 마지막 행 양 끝을 충전 존으로
	last := opts.Rows - 1
	topo.ChargingZones = []models.ChargingZone{
		{Zone: gridZone(opts, last, 0)},
		{Zone: gridZone(opts, last, opts.Cols-1)},
	}

	mg.mu.Lock()
	mg.activeMap = &topo
	mg.mu.Unlock()

	return topo
}

// GetActiveMap returns the last generated topology
func (mg *MapGenerator) GetActiveMap() *models.Topology {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return mg.activeMap
}

// DemoDevices - 첫 행에 배치된 데모 디바이스
func (mg *MapGenerator) DemoDevices(opts GridOptions) []models.Device {
	mg.generationMu.Lock()
	defer mg.generationMu.Unlock()

	devices := make([]models.Device, 0, opts.Devices)
	for i := 0; i < opts.Devices; i++ {
		col := i % opts.Cols
		fwd, turn, vert := 60, 30, 20
		devices = append(devices, models.Device{
			DeviceID:        fmt.Sprintf("DEV%03d", i+1),
			DeviceName:      fmt.Sprintf("demo robot %d", i+1),
			Status:          models.DeviceStatusWorking,
			BatteryLevel:    float64(60 + mg.rng.Intn(41)),
			CurrentMap:      opts.MapID,
			CurrentLocation: gridZone(opts, 0, col),
			ForwardSpeed:    &fwd,
			TurningSpeed:    &turn,
			VerticalSpeed:   &vert,
		})
	}
	return devices
}

// SeedDemo - 데모 맵과 디바이스를 저장소에 기록
func (mg *MapGenerator) SeedDemo(store *Store, opts GridOptions) error {
	topo := mg.GenerateGrid(opts)
	opts.MapID = topo.Map.MapID
	if err := store.ImportTopology(topo); err != nil {
		return fmt.Errorf("import demo map: %w", err)
	}
	for _, d := range mg.DemoDevices(opts) {
		d := d
		if _, err := store.GetDevice(d.DeviceID); err == nil {
			continue
		}
		if err := store.UpsertDevice(&d); err != nil {
			return fmt.Errorf("register %s: %w", d.DeviceID, err)
		}
	}
	log.Printf("🗺️ 데모 맵 생성: %s (존 %d개, 정차 지점 %d개)", topo.Map.MapID, opts.Rows*opts.Cols, len(topo.Stops))
	return nil
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int(v*p+0.5)) / p
}
