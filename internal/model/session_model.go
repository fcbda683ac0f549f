package model

import "time"

type Session struct {
	Id             string    `gorm:"type:varchar(64);primaryKey"`
	AgentId        string    `gorm:"type:varchar(128);not null;index"`
	Version        string    `gorm:"type:varchar(64);not null;default:''"`
	SourcePage     *string   `gorm:"type:text"`
	Status         string    `gorm:"type:varchar(32);not null;default:''"`
	Rating         *int      `gorm:"type:smallint"`
	Solved         *string   `gorm:"type:varchar(16)"`
	CreatedAt      time.Time `gorm:"not null"`
	LastActivityAt time.Time `gorm:"not null;index"`
}

func (Session) TableName() string {
	return "sessions"
}
