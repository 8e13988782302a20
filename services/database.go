package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"wms-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 인스턴스
var db *gorm.DB

// InitDatabase - 설정된 드라이버로 연결 후 마이그레이션
func InitDatabase(cfg Config) error {
	var err error
	switch cfg.DBDriver {
	case "sqlite":
		db, err = OpenSQLite(cfg.SQLitePath)
	default:
		db, err = openMySQL()
	}
	if err != nil {
		return err
	}
	return Migrate(db)
}

func openMySQL() (*gorm.DB, error) {
	// 환경 변수에서 DSN 구성
	host := os.Getenv("MYSQL_HOST")
	portStr := os.Getenv("MYSQL_PORT")
	user := os.Getenv("MYSQL_USER")
	password := os.Getenv("MYSQL_PASSWORD")
	dbname := os.Getenv("MYSQL_DATABASE")

	if host == "" || user == "" || password == "" || dbname == "" {
		return nil, fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port == 0 {
		port = 3306 // 기본 포트
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}

	masked := "***"
	if len(password) > 3 {
		masked = password[:3] + "***"
	}
	log.Println("✅ MySQL 연결 완료")
	log.Printf("📡 연결 정보: %s:%s@%s:%d/%s", user, masked, host, port, dbname)
	return gdb, nil
}

// OpenSQLite - 로컬 개발/테스트용 SQLite
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("DB 디렉토리 생성 실패: %w", err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("SQLite 연결 실패: %w", err)
	}
	log.Printf("✅ SQLite 연결 완료 (%s)", path)
	return gdb, nil
}

// Migrate - 테이블 자동 생성
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Map{},
		&models.ZoneConnection{},
		&models.Stop{},
		&models.Rack{},
		&models.ZoneAlignment{},
		&models.ChargingZone{},
		&models.Device{},
		&models.Task{},
		&models.DispatchLog{},
	)
	if err != nil {
		return fmt.Errorf("마이그레이션 실패: %w", err)
	}
	log.Println("✅ 마이그레이션 완료")
	return nil
}

// GetDB - GORM 인스턴스 반환
func GetDB() *gorm.DB {
	return db
}
