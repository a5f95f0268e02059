package main

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Processing stages recorded in the history table
const (
	StageOCR       = "ocr"
	StageSelect    = "select"
	StageTranslate = "translate"
	StageReinsert  = "reinsert"
)

// ProcessingRecord represents the schema of the processing_records table
type ProcessingRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                // Auto-incrementing primary key
	ProjectID string    `gorm:"size:255;index" json:"project_id"`    // Client project the image belongs to
	Stage     string    `gorm:"size:32;not null" json:"stage"`       // ocr, select, translate or reinsert
	ImageURL  string    `gorm:"size:2048" json:"image_url"`          // Source image or OCR document
	ResultURL string    `gorm:"size:2048" json:"result_url"`         // Object produced by the stage, if any
	Detail    string    `gorm:"size:1048576" json:"detail"`          // Languages, selected text or error
	BoxCount  int       `gorm:"not null;default:0" json:"box_count"` // Lines translated or boxes produced
	CreatedAt time.Time `json:"created_at"`
}

// InitializeDB initializes the SQLite database and migrates the schema
func InitializeDB(dbPath string) *gorm.DB {
	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create db directory: %v", err)
	}

	db, err := openDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func openDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Migrate the schema (create the table if it doesn't exist)
	if err := db.AutoMigrate(&ProcessingRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

// InsertRecord inserts a new processing record into the database
func InsertRecord(db *gorm.DB, record ProcessingRecord) error {
	return db.Create(&record).Error
}

// GetRecords retrieves processing records, newest first, optionally for a
// single project
func GetRecords(db *gorm.DB, projectID string, limit int) ([]ProcessingRecord, error) {
	var records []ProcessingRecord
	query := db.Order("created_at desc, id desc")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&records)
	return records, result.Error
}
