package store

import (
	"strings"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
)

// Partial updates are explicit optional-field structs: a nil field is
// untouched, a present field is validated and projected into a typed
// (column, value) assignment set that gorm turns into one parameterized
// statement. Column names never meet request values in a string.

// MachineUpdate lists the mutable machine fields an admin may change.
// RegenerateAPIKey is a command rather than a value: when set, a fresh
// credential is generated and assigned to api_key.
type MachineUpdate struct {
	Name             *string `json:"name"`
	Code             *string `json:"code"`
	Location         *string `json:"location"`
	MachineType      *string `json:"machine_type"`
	RegenerateAPIKey bool    `json:"regenerate_api_key"`
}

// assignments validates the present fields and projects them into a
// column assignment map. The returned key is the regenerated API key,
// empty unless RegenerateAPIKey was set.
func (u MachineUpdate) assignments() (map[string]any, string, error) {
	set := make(map[string]any)

	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, "", &FieldError{Field: "name", Reason: "must not be empty"}
		}
		set["name"] = *u.Name
	}
	if u.Code != nil {
		if strings.TrimSpace(*u.Code) == "" {
			return nil, "", &FieldError{Field: "code", Reason: "must not be empty"}
		}
		set["code"] = *u.Code
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.MachineType != nil {
		set["machine_type"] = *u.MachineType
	}

	var newKey string
	if u.RegenerateAPIKey {
		newKey = auth.GenerateMachineAPIKey()
		set["api_key"] = newKey
	}

	if len(set) == 0 {
		return nil, "", ErrNoFields
	}
	return set, newKey, nil
}

// UserUpdate lists the mutable user fields an admin may change.
type UserUpdate struct {
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (u UserUpdate) assignments() (map[string]any, error) {
	set := make(map[string]any)

	if u.Password != nil {
		if *u.Password == "" {
			return nil, &FieldError{Field: "password", Reason: "must not be empty"}
		}
		set["password"] = *u.Password
	}
	if u.Role != nil {
		if !model.ValidRole(*u.Role) {
			return nil, &FieldError{Field: "role", Reason: "must be one of admin, manager, technician"}
		}
		set["role"] = *u.Role
	}
	if u.IsActive != nil {
		set["is_active"] = *u.IsActive
	}

	if len(set) == 0 {
		return nil, ErrNoFields
	}
	return set, nil
}
