package models

import "time"

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Price       int64     `gorm:"not null;check:price >= 0" json:"price"` // minor units (kobo)
	ImageURL    string    `gorm:"not null" json:"imageUrl"`
	Type        string    `gorm:"index" json:"type"`
	CategoryID  uint      `gorm:"index" json:"categoryId"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
