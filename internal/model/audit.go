package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionAdjustStock   = "ADJUST_STOCK"
	ActionLaunchProd    = "LAUNCH_PRODUCTION"
	ActionCreateOrder   = "CREATE_ORDER"
	ActionAdvanceOrder  = "ADVANCE_ORDER"
	ActionAutoAdvance   = "AUTO_ADVANCE_ORDER"
	ActionCancelOrder   = "CANCEL_ORDER"
	ActionDeleteOrder   = "DELETE_ORDER"
	ActionStartStage    = "START_STAGE"
	ActionCompleteStage = "COMPLETE_STAGE"
	ActionPaySalary     = "PAY_SALARY"
	ActionIssueAdvance  = "ISSUE_ADVANCE"
)

// AuditLog tracks who did what and when for every workflow mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for the workflow itself
	ActorRole  string     `gorm:"type:varchar(20);not null" json:"actor_role"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
