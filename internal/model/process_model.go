package model

import (
	"time"

	"gorm.io/datatypes"
)

type Process struct {
	Id                string                               `gorm:"type:varchar(32);primaryKey"`
	SessionId         string                               `gorm:"type:varchar(64);primaryKey;index"`
	Query             string                               `gorm:"type:text;not null"`
	Status            string                               `gorm:"type:varchar(16);not null;index"`
	Agent             string                               `gorm:"type:varchar(32);not null;default:''"`
	StartedAt         time.Time                            `gorm:"not null"`
	Responses         datatypes.JSONSlice[ProcessResponse] `gorm:"not null"`
	SolvedRequested   bool                                 `gorm:"not null;default:false"`
	ContinueRequested bool                                 `gorm:"not null;default:false"`
}

func (Process) TableName() string {
	return "processes"
}

// ProcessResponse is stored inside the processes.responses JSON column.
type ProcessResponse struct {
	ResponseId  string         `json:"response_id"`
	CreatedAt   time.Time      `json:"created"`
	Response    string         `json:"response"`
	RichContent datatypes.JSON `json:"rich_content,omitempty"`
}
