package models

import (
	"fmt"
	"time"
)

// Project is a single day's entry in the build log.
type Project struct {
	ID        uint      `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" db:"title" gorm:"type:varchar(200);not null"`
	Slug      string    `json:"slug" db:"slug" gorm:"type:varchar(200);not null;uniqueIndex"`
	DayNumber int       `json:"day_number" db:"day_number" gorm:"not null"`
	ImageURL  string    `json:"image_url" db:"image_url" gorm:"type:varchar(500);not null;default:''"`
	Content   string    `json:"content" db:"content" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime:false"`
}

func (Project) TableName() string {
	return "projects"
}

func (p Project) String() string {
	return fmt.Sprintf("Project Day %d: %s", p.DayNumber, p.Title)
}

// HasImage reports whether an image has been uploaded for the project.
func (p Project) HasImage() bool {
	return p.ImageURL != ""
}

// Columns accepted by ProjectRepo.Update.
const (
	FieldTitle     = "title"
	FieldDayNumber = "day_number"
	FieldContent   = "content"
	FieldImageURL  = "image_url"
)
