package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mp4tomp3/model"
)

// DB is the global gorm handle for the optional conversion history. It stays
// nil when MYSQL_DSN is not configured.
var DB *gorm.DB

// ConnectGorm opens the MySQL connection and migrates the history schema.
func ConnectGorm(dsn string) error {
	gormDB, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := gormDB.AutoMigrate(&model.ConversionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate conversion history schema: %w", err)
	}

	DB = gormDB
	return nil
}

// CloseGorm closes the underlying sql.DB if a connection was opened.
func CloseGorm() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
