package dal

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"merchant-order-api/internal/config"
	mainmodel "merchant-order-api/internal/model/main"
	ordermodel "merchant-order-api/internal/model/order"
)

var (
	// MainDB 商户主库（只读）
	MainDB *gorm.DB
	// OrderDB 订单库
	OrderDB *gorm.DB
)

func InitMainDB() {
	db, err := OpenMySQL(config.C.MysqlMain)
	if err != nil {
		log.Fatalf("connect main db failed: %v", err)
	}
	MainDB = db
}

func InitOrderDB() {
	db, err := OpenMySQL(config.C.MysqlOrder)
	if err != nil {
		log.Fatalf("connect order db failed: %v", err)
	}
	OrderDB = db
}

// OpenMySQL 打开连接池，开启 TranslateError 以识别唯一键冲突
func OpenMySQL(c config.MysqlCfg) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	// 配置日志输出
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // 慢 SQL 阈值
			LogLevel:                  gormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
	return db, nil
}

// AutoMigrate 建表（商户表由外部系统维护，仅开发环境使用）
func AutoMigrate(mainDB, orderDB *gorm.DB) error {
	if mainDB != nil {
		if err := mainDB.AutoMigrate(&mainmodel.Merchant{}); err != nil {
			return fmt.Errorf("migrate main db: %w", err)
		}
	}
	if orderDB != nil {
		if err := orderDB.AutoMigrate(&ordermodel.Order{}, &ordermodel.OrderRequestLog{}); err != nil {
			return fmt.Errorf("migrate order db: %w", err)
		}
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
