package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	EntityID    snowflake.ID `gorm:"not null;index" json:"entity_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Email       string       `gorm:"type:text" json:"email,omitempty"`
	Phone       string       `gorm:"type:text" json:"phone,omitempty"`
	Address     string       `gorm:"type:text" json:"address,omitempty"`
	CompanyName string       `gorm:"type:text" json:"company_name,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
