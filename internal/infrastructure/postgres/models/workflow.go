package models

import (
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// WorkflowRuleModel stores conditions and actions as jsonb documents.
type WorkflowRuleModel struct {
	ID         string             `gorm:"primaryKey"`
	Name       string             `gorm:"not null"`
	Conditions []domain.Condition `gorm:"serializer:json;type:jsonb;not null"`
	Actions    []domain.Action    `gorm:"serializer:json;type:jsonb;not null"`
	Enabled    bool               `gorm:"default:true"`
	Priority   int                `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (WorkflowRuleModel) TableName() string { return "workflow_rules" }

type FiredKeyModel struct {
	RuleID      string `gorm:"primaryKey"`
	EntityID    string `gorm:"primaryKey"`
	Signature   string `gorm:"primaryKey"`
	ActionIndex int    `gorm:"primaryKey;autoIncrement:false"`
	FiredAt     time.Time
}

func (FiredKeyModel) TableName() string { return "workflow_fired_keys" }

type AdminWorkloadModel struct {
	AdminID      string   `gorm:"primaryKey"`
	CurrentLoad  int      `gorm:"not null;default:0"`
	MaxLoad      int      `gorm:"not null"`
	Specialties  []string `gorm:"serializer:json;type:jsonb"`
	Availability string   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AdminWorkloadModel) TableName() string { return "admin_workloads" }
