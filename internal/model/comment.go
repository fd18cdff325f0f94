package model

// Maintenance comment priorities.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ValidPriority reports whether p is a recognized comment priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh || p == PriorityCritical
}

// MaintenanceComment is an append-only note left on a machine by an
// operator. Username is the attributed author, not a foreign key, so the
// attribution survives user deletion.
type MaintenanceComment struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	MachineID int64  `gorm:"index;not null" json:"machine_id"`
	Username  string `gorm:"size:128;not null" json:"username"`
	Comment   string `gorm:"not null" json:"comment"`
	Priority  string `gorm:"size:16;not null;default:normal" json:"priority"`
	CreatedAt int64  `json:"created_at"`
}
