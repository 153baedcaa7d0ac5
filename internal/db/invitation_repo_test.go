package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reviewloop/internal/types"
)

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockRow implements pgx.Row with either a fixed error or a scan function.
type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// invitationScanFn writes a canonical invitation row into scan targets.
func invitationScanFn(status string, retryCount int, errorMessage, responseLog *string) func(dest ...any) error {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	return func(dest ...any) error {
		*dest[0].(*string) = "conv_1"
		*dest[1].(*string) = "jo@example.com"
		*dest[2].(*string) = "Jo"
		*dest[3].(*string) = "Sam"
		*dest[4].(*string) = status
		*dest[5].(*int) = retryCount
		*dest[6].(**string) = errorMessage
		*dest[7].(**string) = responseLog
		*dest[8].(*time.Time) = now
		*dest[9].(*time.Time) = now
		return nil
	}
}

// invitationMockRows implements pgx.Rows over canned invitation rows.
type invitationMockRows struct {
	scanFns []func(dest ...any) error
	idx     int
	closed  bool
	errVal  error
}

func (r *invitationMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.scanFns)
}

func (r *invitationMockRows) Scan(dest ...any) error { return r.scanFns[r.idx](dest...) }

func (r *invitationMockRows) Close()                                       { r.closed = true }
func (r *invitationMockRows) Err() error                                   { return r.errVal }
func (r *invitationMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *invitationMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *invitationMockRows) RawValues() [][]byte                          { return nil }
func (r *invitationMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *invitationMockRows) Conn() *pgx.Conn                              { return nil }

func TestInvitationRepository_Get_NotFound(t *testing.T) {
	mockDB := new(mockDBTX)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	repo := NewInvitationRepository(mockDB)
	inv, err := repo.Get(context.Background(), "conv_missing")

	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInvitationRepository_Get_Found(t *testing.T) {
	msg := "timeout"
	mockDB := new(mockDBTX)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanFn: invitationScanFn("retrying", 2, &msg, nil)})

	repo := NewInvitationRepository(mockDB)
	inv, err := repo.Get(context.Background(), "conv_1")

	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, types.StatusRetrying, inv.Status)
	assert.Equal(t, 2, inv.RetryCount)
	assert.Equal(t, "timeout", inv.ErrorMessage)
	assert.Empty(t, inv.ResponseLog)
}

func TestInvitationRepository_Get_DBError(t *testing.T) {
	mockDB := new(mockDBTX)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection reset")})

	repo := NewInvitationRepository(mockDB)
	_, err := repo.Get(context.Background(), "conv_1")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestInvitationRepository_CreateIfAbsent_Created(t *testing.T) {
	mockDB := new(mockDBTX)
	mockDB.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanFn: invitationScanFn("processing", 0, nil, nil)})

	repo := NewInvitationRepository(mockDB)
	inv, created, err := repo.CreateIfAbsent(context.Background(), &types.Invitation{
		ConversationID: "conv_1",
		CustomerEmail:  "jo@example.com",
		CustomerName:   "Jo",
		AgentName:      "Sam",
		Status:         types.StatusProcessing,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, types.StatusProcessing, inv.Status)
	mockDB.AssertExpectations(t)
}

func TestInvitationRepository_CreateIfAbsent_Conflict(t *testing.T) {
	mockDB := new(mockDBTX)
	mockDB.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanFn: invitationScanFn("success", 1, nil, nil)})

	repo := NewInvitationRepository(mockDB)
	inv, created, err := repo.CreateIfAbsent(context.Background(), &types.Invitation{
		ConversationID: "conv_1",
		Status:         types.StatusProcessing,
	})

	require.NoError(t, err)
	assert.False(t, created, "conflicting insert must report created=false")
	assert.Equal(t, types.StatusSuccess, inv.Status, "pre-existing record returned untouched")
}

func TestInvitationRepository_Update_PatchFields(t *testing.T) {
	rc := 1
	msg := "smtp 451"
	mockDB := new(mockDBTX)
	mockDB.On("QueryRow", mock.Anything,
		mock.MatchedBy(func(sql string) bool { return true }),
		mock.MatchedBy(func(args []any) bool {
			// status, retry_count, error_message, conversation_id
			return len(args) == 4 && args[0] == "retrying" && args[3] == "conv_1"
		}),
	).Return(&mockRow{scanFn: invitationScanFn("retrying", 1, &msg, nil)})

	repo := NewInvitationRepository(mockDB)
	inv, err := repo.Update(context.Background(), "conv_1", types.InvitationPatch{
		Status:       types.StatusRetrying,
		RetryCount:   &rc,
		ErrorMessage: &msg,
	})

	require.NoError(t, err)
	assert.Equal(t, types.StatusRetrying, inv.Status)
	assert.Equal(t, 1, inv.RetryCount)
	mockDB.AssertExpectations(t)
}

func TestInvitationRepository_Update_NotFound(t *testing.T) {
	mockDB := new(mockDBTX)
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	repo := NewInvitationRepository(mockDB)
	_, err := repo.Update(context.Background(), "conv_missing", types.InvitationPatch{
		Status: types.StatusSuccess,
	})

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundInvitation, appErr.Code)
}

func TestInvitationRepository_List(t *testing.T) {
	rows := &invitationMockRows{
		idx: -1,
		scanFns: []func(dest ...any) error{
			invitationScanFn("success", 0, nil, nil),
			invitationScanFn("failed", 3, nil, nil),
		},
	}

	mockDB := new(mockDBTX)
	mockDB.On("Query", mock.Anything, mock.Anything,
		mock.MatchedBy(func(args []any) bool {
			return len(args) == 2 && args[0] == 20 && args[1] == 40
		}),
	).Return(rows, nil)

	repo := NewInvitationRepository(mockDB)
	results, err := repo.List(context.Background(), 20, 40)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, types.StatusSuccess, results[0].Status)
	assert.Equal(t, types.StatusFailed, results[1].Status)
}

func TestInvitationRepository_List_DefaultsLimit(t *testing.T) {
	rows := &invitationMockRows{idx: -1}

	mockDB := new(mockDBTX)
	mockDB.On("Query", mock.Anything, mock.Anything,
		mock.MatchedBy(func(args []any) bool {
			return len(args) == 2 && args[0] == 50 && args[1] == 0
		}),
	).Return(rows, nil)

	repo := NewInvitationRepository(mockDB)
	results, err := repo.List(context.Background(), 0, -5)

	require.NoError(t, err)
	assert.Empty(t, results)
	mockDB.AssertExpectations(t)
}
