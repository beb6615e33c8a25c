package model

import (
	"time"

	"github.com/google/uuid"
)

type WikiDocument struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceId        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Title           string    `gorm:"type:text"`
	Content         string    `gorm:"type:text"`
	SourceURL       string    `gorm:"type:text"`
	SourceUpdatedAt string    `gorm:"type:varchar(64)"` // exact source string, not parsed
	SyncedAt        time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (WikiDocument) TableName() string {
	return "wiki_documents"
}
