package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fleet-telemetry-backend/internal/model"
)

// newTestStore opens a migrated in-memory sqlite database, isolated per
// test via the database name.
func newTestStore(t *testing.T) Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Machine{},
		&model.User{},
		&model.MaintenanceComment{},
		&model.SpeedHistory{},
		&model.PushSubscription{},
	))

	return NewGormStore(db)
}

func createTestMachine(t *testing.T, s Store, name, code, apiKey string) *model.Machine {
	t.Helper()
	m := &model.Machine{Name: name, Code: code, APIKey: apiKey}
	require.NoError(t, s.CreateMachine(context.Background(), m))
	return m
}

func TestCreateMachineConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := createTestMachine(t, s, "Line1", "L1", "machine_key1")

	err := s.CreateMachine(ctx, &model.Machine{Name: "Line2", Code: "L1", APIKey: "machine_key2"})
	assert.ErrorIs(t, err, ErrConflict)

	// The first machine is unaffected and remains the only row.
	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, first.ID, machines[0].ID)
	assert.Equal(t, "Line1", machines[0].Name)
}

func TestListMachinesOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestMachine(t, s, "Zeta", "Z1", "machine_kz")
	createTestMachine(t, s, "Alpha", "A1", "machine_ka")

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "Alpha", machines[0].Name)
	assert.Equal(t, "Zeta", machines[1].Name)
}

func TestRecordSpeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")
	assert.False(t, m.IsOnline)

	ts, err := s.RecordSpeed(ctx, m.ID, 42.5, nil)
	require.NoError(t, err)
	assert.Greater(t, ts, int64(0))

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, got.CurrentSpeed)
	assert.Equal(t, "", got.StatusMessage)
	assert.True(t, got.IsOnline)
	assert.Equal(t, ts, got.LastUpdate)

	// The history record shares the live-state timestamp and keeps the
	// absent message as null, not "".
	history, err := s.ListHistory(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 42.5, history[0].Speed)
	assert.Nil(t, history[0].Message)
	assert.Equal(t, ts, history[0].Timestamp)
}

func TestRecordSpeedWithMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")

	msg := "vibration warning"
	ts, err := s.RecordSpeed(ctx, m.ID, 10.0, &msg)
	require.NoError(t, err)

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "vibration warning", got.StatusMessage)
	assert.Equal(t, ts, got.LastUpdate)

	history, err := s.ListHistory(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Message)
	assert.Equal(t, "vibration warning", *history[0].Message)
}

// Losing a history row is tolerated; losing live state is not. With the
// history table gone the ingestion call still succeeds and the live
// state still updates.
func TestRecordSpeedHistoryFailureTolerated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")

	require.NoError(t, s.DB().Exec("DROP TABLE speed_history").Error)

	ts, err := s.RecordSpeed(ctx, m.ID, 5.5, nil)
	require.NoError(t, err)

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.5, got.CurrentSpeed)
	assert.True(t, got.IsOnline)
	assert.Equal(t, ts, got.LastUpdate)
}

func TestListHistoryNewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")

	for _, speed := range []float64{1, 2, 3} {
		_, err := s.RecordSpeed(ctx, m.ID, speed, nil)
		require.NoError(t, err)
	}

	// Same-second entries fall back to insertion order, newest first.
	history, err := s.ListHistory(ctx, m.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3.0, history[0].Speed)
	assert.Equal(t, 2.0, history[1].Speed)
}

func TestStaleMachines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh := createTestMachine(t, s, "Fresh", "F1", "machine_kf")
	stale := createTestMachine(t, s, "Stale", "S1", "machine_ks")
	createTestMachine(t, s, "Silent", "Q1", "machine_kq") // never reported, not online

	_, err := s.RecordSpeed(ctx, fresh.ID, 1, nil)
	require.NoError(t, err)
	_, err = s.RecordSpeed(ctx, stale.ID, 1, nil)
	require.NoError(t, err)

	// Age the stale machine's last report without touching is_online.
	require.NoError(t, s.DB().Model(&model.Machine{}).Where("id = ?", stale.ID).
		Update("last_update", 1000).Error)

	got, err := s.StaleMachines(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
}

func TestAuthenticateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "alice", Password: "secret", Role: model.RoleManager, Token: "user_tok1", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.AuthenticateUser(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user_tok1", got.Token)
	assert.Equal(t, model.RoleManager, got.Role)

	_, err = s.AuthenticateUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.AuthenticateUser(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthenticateUserInactive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "bob", Password: "pw", Role: model.RoleTechnician, Token: "user_tok2", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))

	_, err := s.UpdateUser(ctx, u.ID, UserUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = s.AuthenticateUser(ctx, "bob", "pw")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserValidatesRole(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateUser(context.Background(), &model.User{
		Username: "eve", Password: "pw", Role: "operator", Token: "user_tok3",
	})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "role", fe.Field)
}

func TestCreateUserConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &model.User{
		Username: "alice", Password: "a", Role: model.RoleManager, Token: "user_t1",
	}))
	err := s.CreateUser(ctx, &model.User{
		Username: "alice", Password: "b", Role: model.RoleManager, Token: "user_t2",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCredentialLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")
	u := &model.User{Username: "alice", Password: "pw", Role: model.RoleManager, Token: "user_tok", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))

	id, err := s.MachineIDByAPIKey(ctx, "machine_key1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, id)

	_, err = s.MachineIDByAPIKey(ctx, "machine_unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	name, err := s.UsernameByToken(ctx, "user_tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, err = s.UsernameByToken(ctx, "user_unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deactivation revokes the token on the very next lookup.
	_, err = s.UpdateUser(ctx, u.ID, UserUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = s.UsernameByToken(ctx, "user_tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := createTestMachine(t, s, "Line1", "L1", "machine_key1")

	first := &model.MaintenanceComment{MachineID: m.ID, Username: "alice", Comment: "belt worn", Priority: model.PriorityNormal, CreatedAt: 100}
	second := &model.MaintenanceComment{MachineID: m.ID, Username: "bob", Comment: "belt replaced", Priority: model.PriorityHigh, CreatedAt: 200}
	require.NoError(t, s.AddComment(ctx, first))
	require.NoError(t, s.AddComment(ctx, second))

	comments, err := s.ListComments(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "belt replaced", comments[0].Comment) // newest first
	assert.Equal(t, "belt worn", comments[1].Comment)
}

func TestAddCommentValidatesPriority(t *testing.T) {
	s := newTestStore(t)

	err := s.AddComment(context.Background(), &model.MaintenanceComment{
		MachineID: 1, Username: "alice", Comment: "x", Priority: "urgent",
	})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "priority", fe.Field)
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
