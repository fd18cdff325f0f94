package model

// SpeedHistory is one append-only telemetry record. Message is nil when
// the report carried none. TableName pins the table to the singular form
// used by the ingestion path's raw ordering queries.
type SpeedHistory struct {
	ID        int64   `gorm:"primaryKey" json:"-"`
	MachineID int64   `gorm:"index;not null" json:"-"`
	Speed     float64 `gorm:"not null" json:"speed"`
	Message   *string `json:"message"`
	Timestamp int64   `gorm:"index;not null" json:"timestamp"`
}

// TableName overrides gorm's pluralization ("speed_histories").
func (SpeedHistory) TableName() string {
	return "speed_history"
}
