package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/model"
)

// Store defines the interface for all database operations. It also
// satisfies auth.CredentialSource so the token classifier reads the same
// freshly-queried state as everything else.
type Store interface {
	// DB exposes the underlying handle for collaborators that manage
	// their own associations (push subscriptions, notification worker).
	DB() *gorm.DB

	// Machines.
	CreateMachine(ctx context.Context, m *model.Machine) error
	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	UpdateMachine(ctx context.Context, id int64, upd MachineUpdate) (*model.Machine, string, error)

	// Telemetry.
	RecordSpeed(ctx context.Context, machineID int64, speed float64, message *string) (int64, error)
	ListHistory(ctx context.Context, machineID int64, limit int) ([]model.SpeedHistory, error)
	StaleMachines(ctx context.Context, olderThan int64) ([]model.Machine, error)

	// Users.
	CreateUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*model.User, error)

	// Comments.
	AddComment(ctx context.Context, c *model.MaintenanceComment) error
	ListComments(ctx context.Context, machineID int64) ([]model.MaintenanceComment, error)

	// Credential lookups for the token classifier.
	MachineIDByAPIKey(ctx context.Context, apiKey string) (int64, error)
	UsernameByToken(ctx context.Context, token string) (string, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Machines ---

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return conflictOr(err, "create machine")
	}
	return nil
}

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("name").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get machine %d: %w", id, err)
	}
	return &m, nil
}

// UpdateMachine applies a partial update and returns the re-read record.
// The second return value is the regenerated API key, empty unless the
// update requested one. ErrNoFields is raised before any storage call.
func (s *gormStore) UpdateMachine(ctx context.Context, id int64, upd MachineUpdate) (*model.Machine, string, error) {
	set, newKey, err := upd.assignments()
	if err != nil {
		return nil, "", err
	}

	if _, err := s.GetMachine(ctx, id); err != nil {
		return nil, "", err
	}

	if err := s.db.WithContext(ctx).Model(&model.Machine{}).Where("id = ?", id).Updates(set).Error; err != nil {
		return nil, "", conflictOr(err, fmt.Sprintf("update machine %d", id))
	}

	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, "", fmt.Errorf("%w: machine %d: %v", ErrPostUpdateRead, id, err)
	}
	return &m, newKey, nil
}

// --- Telemetry ---

// RecordSpeed atomically updates the machine's live state and appends a
// history record, both stamped with the same timestamp. A live-state
// failure is fatal to the call; a history-append failure is logged and
// swallowed — losing one history row is tolerated, losing live state is
// not.
func (s *gormStore) RecordSpeed(ctx context.Context, machineID int64, speed float64, message *string) (int64, error) {
	timestamp := time.Now().Unix()

	statusMessage := ""
	if message != nil {
		statusMessage = *message
	}

	err := s.db.WithContext(ctx).Model(&model.Machine{}).Where("id = ?", machineID).Updates(map[string]any{
		"current_speed":  speed,
		"status_message": statusMessage,
		"last_update":    timestamp,
		"is_online":      true,
	}).Error
	if err != nil {
		return 0, fmt.Errorf("update live state for machine %d: %w", machineID, err)
	}

	record := model.SpeedHistory{
		MachineID: machineID,
		Speed:     speed,
		Message:   message,
		Timestamp: timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Printf("failed to append speed history for machine %d: %v", machineID, err)
	}

	return timestamp, nil
}

func (s *gormStore) ListHistory(ctx context.Context, machineID int64, limit int) ([]model.SpeedHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	var history []model.SpeedHistory
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("list history for machine %d: %w", machineID, err)
	}
	return history, nil
}

// StaleMachines returns online machines whose last report is older than
// the given unix timestamp. Read-only: the sweep never clears is_online.
func (s *gormStore) StaleMachines(ctx context.Context, olderThan int64) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Where("is_online = ? AND last_update < ?", true, olderThan).
		Order("last_update").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("list stale machines: %w", err)
	}
	return machines, nil
}

// --- Users ---

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if !model.ValidRole(u.Role) {
		return &FieldError{Field: "role", Reason: "must be one of admin, manager, technician"}
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return conflictOr(err, "create user")
	}
	return nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AuthenticateUser matches username and password by plain equality.
// Plaintext comparison is kept for login parity with deployed agents; a
// salted hash would change observable behavior here.
func (s *gormStore) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND password = ? AND is_active = ?", username, password, true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("authenticate user: %w", err)
	}
	return &u, nil
}

func (s *gormStore) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*model.User, error) {
	set, err := upd.assignments()
	if err != nil {
		return nil, err
	}

	var existing model.User
	if err := s.db.WithContext(ctx).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(set).Error; err != nil {
		return nil, conflictOr(err, fmt.Sprintf("update user %d", id))
	}

	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("%w: user %d: %v", ErrPostUpdateRead, id, err)
	}
	return &u, nil
}

// --- Comments ---

func (s *gormStore) AddComment(ctx context.Context, c *model.MaintenanceComment) error {
	if !model.ValidPriority(c.Priority) {
		return &FieldError{Field: "priority", Reason: "must be one of low, normal, high, critical"}
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

func (s *gormStore) ListComments(ctx context.Context, machineID int64) ([]model.MaintenanceComment, error) {
	var comments []model.MaintenanceComment
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments for machine %d: %w", machineID, err)
	}
	return comments, nil
}

// --- Credential lookups ---

func (s *gormStore) MachineIDByAPIKey(ctx context.Context, apiKey string) (int64, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).Select("id").Where("api_key = ?", apiKey).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("machine lookup by api key: %w", err)
	}
	return m.ID, nil
}

// UsernameByToken resolves an operator token. Deactivated users no
// longer classify: deactivation revokes access on the next request.
func (s *gormStore) UsernameByToken(ctx context.Context, token string) (string, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Select("username").
		Where("token = ? AND is_active = ?", token, true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("user lookup by token: %w", err)
	}
	return u.Username, nil
}
