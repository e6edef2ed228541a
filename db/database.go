package db

import (
	"database/sql"
	"fmt"
	"time"

	"BeatStudio/config"
	"BeatStudio/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	DB.SetMaxOpenConns(20)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database.")
	return nil
}

// CloseDB 关闭数据库连接
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// InitDB creates the read-side song tables if they don't exist. Saved
// beatmaps are migrated by GORM, see AutoMigrateModels.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := createSongBeatmapsTable(); err != nil {
		return err
	}
	logger.Info("Database initialization completed.")
	return nil
}

func createSongsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		audio_url VARCHAR(767) NOT NULL DEFAULT '',
		audio_key VARCHAR(767) NOT NULL DEFAULT '',
		audio_duration DOUBLE NULL,
		reff_start DOUBLE NULL,
		reff_end DOUBLE NULL,
		bpm DOUBLE NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	logger.Info("Songs table initialized successfully (or already exists).")
	return nil
}

func createSongBeatmapsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS song_beatmaps (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		song_id BIGINT NOT NULL,
		difficulty_name VARCHAR(50) NOT NULL,
		beatmap_asset_key VARCHAR(767) NOT NULL DEFAULT '',
		beatmap_asset_url VARCHAR(767) NOT NULL DEFAULT '',
		beatmap_id BIGINT NOT NULL DEFAULT 0,
		CONSTRAINT uq_song_difficulty UNIQUE (song_id, difficulty_name),
		CONSTRAINT fk_song_beatmaps FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create song_beatmaps table: %w", err)
	}
	logger.Info("Song beatmaps table initialized successfully (or already exists).")
	return nil
}
