package model

// Operator roles. Role changes outside this set are rejected before they
// reach storage.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// ValidRole reports whether role is one of the three operator roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleTechnician
}

// User is a human operator. Password and Token are stored as plain
// comparable strings for login/classification parity with the deployed
// fleet agents; the password never serializes, the token does — it is how
// an operator receives their credential at creation time.
type User struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	Password  string `gorm:"size:256;not null" json:"-"`
	Role      string `gorm:"size:32;not null" json:"role"`
	Token     string `gorm:"uniqueIndex;size:64" json:"token"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`
}
