package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"reviewloop/internal/types"
)

// InvitationRepository provides data access for the review_invitations table.
// conversation_id carries a UNIQUE constraint; CreateIfAbsent leans on it so
// concurrent inserts for the same conversation resolve to a single row
// without any read-modify-write window.
type InvitationRepository struct {
	db DBTX
}

var _ types.InvitationStore = (*InvitationRepository)(nil)

// NewInvitationRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewInvitationRepository(db DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `conversation_id, customer_email, customer_name, agent_name,
	        status, retry_count, error_message, response_log, created_at, updated_at`

// Get returns the invitation for the conversation, or (nil, nil) when no
// record exists.
func (r *InvitationRepository) Get(ctx context.Context, conversationID string) (*types.Invitation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+invitationColumns+`
		 FROM review_invitations
		 WHERE conversation_id = $1`,
		conversationID,
	)

	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get invitation", err)
	}
	return inv, nil
}

// CreateIfAbsent inserts the invitation unless a row for its conversation
// already exists. ON CONFLICT DO NOTHING makes the claim atomic: of any
// number of concurrent calls for one conversation, exactly one observes
// created=true. When the insert is skipped the pre-existing row is returned.
func (r *InvitationRepository) CreateIfAbsent(ctx context.Context, inv *types.Invitation) (*types.Invitation, bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO review_invitations
		 (conversation_id, customer_email, customer_name, agent_name,
		  status, retry_count, error_message, response_log, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), COALESCE($10, NOW()))
		 ON CONFLICT (conversation_id) DO NOTHING`,
		inv.ConversationID,
		inv.CustomerEmail,
		inv.CustomerName,
		inv.AgentName,
		string(inv.Status),
		inv.RetryCount,
		nilIfEmpty(inv.ErrorMessage),
		nilIfEmpty(inv.ResponseLog),
		nilIfZeroTime(inv.CreatedAt),
		nilIfZeroTime(inv.UpdatedAt),
	)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to create invitation", err)
	}

	existing, err := r.Get(ctx, inv.ConversationID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// The row vanished between insert and read; treat as a store fault.
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "invitation row missing after insert", nil)
	}

	return existing, tag.RowsAffected() == 1, nil
}

// Update applies the patch to the invitation and bumps updated_at. Only the
// fields set in the patch are written; identity fields are never touched.
func (r *InvitationRepository) Update(ctx context.Context, conversationID string, patch types.InvitationPatch) (*types.Invitation, error) {
	sets := []string{"status = $1", "updated_at = NOW()"}
	args := []any{string(patch.Status)}
	argIdx := 2

	if patch.RetryCount != nil {
		sets = append(sets, fmt.Sprintf("retry_count = $%d", argIdx))
		args = append(args, *patch.RetryCount)
		argIdx++
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, fmt.Sprintf("error_message = $%d", argIdx))
		args = append(args, nilIfEmpty(*patch.ErrorMessage))
		argIdx++
	}
	if patch.ResponseLog != nil {
		sets = append(sets, fmt.Sprintf("response_log = $%d", argIdx))
		args = append(args, nilIfEmpty(*patch.ResponseLog))
		argIdx++
	}

	query := fmt.Sprintf(
		`UPDATE review_invitations SET %s
		 WHERE conversation_id = $%d
		 RETURNING `+invitationColumns,
		strings.Join(sets, ", "),
		argIdx,
	)
	args = append(args, conversationID)

	inv, err := scanInvitation(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundInvitation, "invitation not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to update invitation", err)
	}
	return inv, nil
}

// List returns invitations ordered by creation time descending.
func (r *InvitationRepository) List(ctx context.Context, limit, offset int) ([]*types.Invitation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+invitationColumns+`
		 FROM review_invitations
		 ORDER BY created_at DESC, conversation_id
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list invitations", err)
	}
	defer rows.Close()

	var results []*types.Invitation
	for rows.Next() {
		inv, scanErr := scanInvitation(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan invitation row", scanErr)
		}
		results = append(results, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating invitation rows", err)
	}

	return results, nil
}

// scanInvitation scans one review_invitations row. Works for both pgx.Row
// and pgx.Rows. Nullable columns use pointer targets.
func scanInvitation(row pgx.Row) (*types.Invitation, error) {
	var (
		inv          types.Invitation
		status       string
		errorMessage *string
		responseLog  *string
	)

	err := row.Scan(
		&inv.ConversationID,
		&inv.CustomerEmail,
		&inv.CustomerName,
		&inv.AgentName,
		&status,
		&inv.RetryCount,
		&errorMessage,
		&responseLog,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = types.InvitationStatus(status)
	if errorMessage != nil {
		inv.ErrorMessage = *errorMessage
	}
	if responseLog != nil {
		inv.ResponseLog = *responseLog
	}
	return &inv, nil
}

// nilIfEmpty maps an empty string to SQL NULL.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nilIfZeroTime maps the zero time to SQL NULL so COALESCE can substitute NOW().
func nilIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
