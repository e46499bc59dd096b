package models

import (
	"time"
)

type DisputeModel struct {
	ID                string           `gorm:"primaryKey"`
	TransactionID     string           `gorm:"index;not null"`
	Transaction       TransactionModel `gorm:"foreignKey:TransactionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	RaiserID          string           `gorm:"index;not null"`
	AccusedID         string           `gorm:"index;not null"`
	DisputeType       string
	Reason            string
	Priority          string `gorm:"not null"`
	Status            string `gorm:"index;not null"`
	AssignedAdminID   *string
	AdminReleased     bool
	Resolution        *string
	ResolutionOutcome string
	RaiserAccepted    bool
	AccusedAccepted   bool
	Version           int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
}

func (DisputeModel) TableName() string { return "disputes" }
