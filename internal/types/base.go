package types

import "time"

// Status is the generic record status, distinct from the subscription
// lifecycle status.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

// BaseModel carries the audit columns shared by every persisted record.
type BaseModel struct {
	TenantID  string    `json:"tenant_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// GetDefaultBaseModel returns a BaseModel stamped for a system write.
func GetDefaultBaseModel(tenantID string) BaseModel {
	now := time.Now().UTC()
	return BaseModel{
		TenantID:  tenantID,
		Status:    StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: string(ChangeActorSystem),
		UpdatedBy: string(ChangeActorSystem),
	}
}
