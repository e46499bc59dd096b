package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionModel struct {
	ID                  string          `gorm:"primaryKey"`
	CreatorID           string          `gorm:"index;not null"`
	CounterpartyID      *string         `gorm:"index"`
	CreatorRole         string          `gorm:"not null"`
	Price               decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Fee                 decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Total               decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency            string          `gorm:"size:3;not null"`
	UseCourier          bool
	Status              string `gorm:"index;not null"`
	StatusBeforeDispute string
	Version             int64     `gorm:"not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime:false"`
	JoinedAt            *time.Time
	PaidAt              *time.Time
	ShippedAt           *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	DisputedAt          *time.Time
}

func (TransactionModel) TableName() string { return "transactions" }
