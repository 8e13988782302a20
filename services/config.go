package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DispatchPolicy - 디스패치/충전 정책 값
type DispatchPolicy struct {
	AssignBatteryThreshold   float64       `yaml:"assign_battery_threshold"`   // 이 값 초과여야 작업 배정
	LowBatteryThreshold      float64       `yaml:"low_battery_threshold"`      // 미만이면 무조건 충전
	ChargingBatteryThreshold float64       `yaml:"charging_battery_threshold"` // 이름 없는 충전 요청 대상 조건
	AutoRunDelay             time.Duration `yaml:"auto_run_delay"`
	PollInterval             time.Duration `yaml:"poll_interval"`
}

// Config - 서버 설정 (.env / 환경 변수 / YAML 정책 파일)
type Config struct {
	DBDriver   string
	SQLitePath string

	DataDir       string // 큐 요청 파일
	DeviceLogsDir string // 디바이스 작업 큐 / 로그 / 경로 파일

	HTTPAddr string
	NATSURL  string

	SeedDemoMap     bool
	SimulateDevices bool

	LogFlushSize     int
	LogFlushInterval time.Duration

	Policy DispatchPolicy
}

// DefaultPolicy - 기본 정책
func DefaultPolicy() DispatchPolicy {
	return DispatchPolicy{
		AssignBatteryThreshold:   20,
		LowBatteryThreshold:      30,
		ChargingBatteryThreshold: 80,
		AutoRunDelay:             7 * time.Second,
		PollInterval:             3 * time.Second,
	}
}

// DefaultConfig - 기본 설정
func DefaultConfig() Config {
	return Config{
		DBDriver:         "mysql",
		SQLitePath:       "data/wms.db",
		DataDir:          "data",
		DeviceLogsDir:    "data/device_logs",
		HTTPAddr:         ":3000",
		LogFlushSize:     50,
		LogFlushInterval: 5 * time.Second,
		Policy:           DefaultPolicy(),
	}
}

// LoadConfig - 기본값 → DISPATCH_CONFIG(YAML) → 환경 변수 순으로 적용
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("DISPATCH_CONFIG"); path != "" {
		policy, err := LoadPolicyFile(path, cfg.Policy)
		if err != nil {
			return cfg, err
		}
		cfg.Policy = policy
	}

	cfg.DBDriver = envString("DB_DRIVER", cfg.DBDriver)
	cfg.SQLitePath = envString("SQLITE_PATH", cfg.SQLitePath)
	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)
	cfg.DeviceLogsDir = envString("DEVICE_LOGS_DIR", cfg.DeviceLogsDir)
	cfg.HTTPAddr = envString("HTTP_ADDR", cfg.HTTPAddr)
	cfg.NATSURL = envString("NATS_URL", cfg.NATSURL)
	cfg.SeedDemoMap = envBool("SEED_DEMO_MAP", cfg.SeedDemoMap)
	cfg.SimulateDevices = envBool("SIMULATE_DEVICES", cfg.SimulateDevices)
	cfg.Policy.PollInterval = envDuration("POLL_INTERVAL", cfg.Policy.PollInterval)
	cfg.Policy.AutoRunDelay = envDuration("AUTO_RUN_DELAY", cfg.Policy.AutoRunDelay)

	return cfg, nil
}

// LoadPolicyFile - YAML 정책 파일 (없는 키는 base 값 유지)
func LoadPolicyFile(path string, base DispatchPolicy) (DispatchPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("정책 파일 읽기 실패: %w", err)
	}
	policy := base
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return base, fmt.Errorf("정책 파일 파싱 실패 (%s): %w", path, err)
	}
	if policy.PollInterval <= 0 {
		policy.PollInterval = base.PollInterval
	}
	if policy.AutoRunDelay < 0 {
		policy.AutoRunDelay = base.AutoRunDelay
	}
	return policy, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️ %s 값이 올바르지 않음 (%q), 기본값 사용", key, v)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("⚠️ %s 값이 올바르지 않음 (%q), 기본값 사용", key, v)
		return def
	}
	return d
}
