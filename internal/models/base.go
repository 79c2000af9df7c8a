package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Database connection instance
var DB *gorm.DB

// InitDB opens a database connection through the given dialector and runs
// migrations. Production wires MySQL here; tests pass in-memory SQLite.
func InitDB(dialector gorm.Dialector) (*gorm.DB, error) {
	var err error

	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto migrate the database models
	err = DB.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Ambulance{},
		&EmergencyRequest{},
		&RequestStatusHistory{},
		&Patient{},
		&ServiceHistory{},
	)
	if err != nil {
		return nil, err
	}

	return DB, nil
}
