package domain

import "time"

// Meal is one persisted analysis result. Records are append-only: created
// once per successful analysis and removed only by an explicit bulk clear.
type Meal struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Filename  string        `gorm:"type:text;not null" json:"filename"`
	Food      string        `gorm:"type:text" json:"food"`
	Health    HealthVerdict `gorm:"type:text" json:"health"`
	Reason    string        `gorm:"type:text" json:"reason"`
	NextMeal  string        `gorm:"type:text" json:"next_meal"`
	Size      int64         `json:"size"`
	ImageURL  string        `gorm:"type:text" json:"image_url,omitempty"`
	SourceURL string        `gorm:"type:text" json:"source_url,omitempty"`
	CreatedAt time.Time     `gorm:"index:idx_meals_created_at" json:"created_at"`
}

// TableName returns the database table name for Meal.
func (Meal) TableName() string {
	return "meals"
}
