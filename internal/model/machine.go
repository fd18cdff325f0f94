package model

// Machine represents a fleet machine and its live telemetry state.
// The live columns (CurrentSpeed, StatusMessage, IsOnline, LastUpdate)
// are written only by the telemetry ingestion path or an admin update;
// IsOnline is set on the first successful report and never cleared.
type Machine struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Code          string  `gorm:"uniqueIndex;size:64;not null" json:"code"`
	APIKey        string  `gorm:"column:api_key;uniqueIndex;size:64;not null" json:"-"`
	Location      *string `gorm:"size:256" json:"location"`
	MachineType   *string `gorm:"size:64" json:"machine_type"`
	CurrentSpeed  float64 `gorm:"not null;default:0" json:"current_speed"`
	StatusMessage string  `gorm:"not null;default:''" json:"status_message"`
	IsOnline      bool    `gorm:"not null;default:false" json:"is_online"`
	LastUpdate    int64   `gorm:"not null;default:0" json:"last_update"`
	CreatedAt     int64   `gorm:"autoCreateTime" json:"created_at"`
}
