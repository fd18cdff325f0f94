package model

// PushSubscription holds the information for a browser push subscription.
// Operators subscribe to the machines they want maintenance alerts for.
type PushSubscription struct {
	Endpoint  string `gorm:"primaryKey"`
	P256DH    string `gorm:"column:p256dh;not null"`
	Auth      string `gorm:"not null"`
	CreatedAt int64  `gorm:"autoCreateTime;not null"`

	// Associations
	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;"`
}
