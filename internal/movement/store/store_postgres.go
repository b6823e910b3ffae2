package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"wastetrack/internal/movement/models"
	"wastetrack/pkg/platform/sentinel"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx so the
// same store code serves plain and transactional access.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists waste inputs in PostgreSQL. All domain logic
// (revision arithmetic beyond the +1 predicate write, ownership, idempotency)
// belongs in the service.
type PostgresStore struct {
	db dbtx
}

// NewPostgres constructs a store over the shared connection pool.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a store bound to an open transaction. Every call
// through it joins that transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const wasteInputColumns = `id, revision, org_id, trace_id, bulk_id, receipt, submitting_organisation, created_at, last_updated_at`

func (s *PostgresStore) Get(ctx context.Context, trackingID string) (*models.WasteInput, error) {
	query := `
		SELECT ` + wasteInputColumns + `
		FROM waste_inputs
		WHERE id = $1
	`
	input, err := scanWasteInput(s.db.QueryRowContext(ctx, query, trackingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get waste input: %w", err)
	}
	return input, nil
}

func (s *PostgresStore) Insert(ctx context.Context, input *models.WasteInput) error {
	org, err := marshalOrg(input.SubmittingOrganisation)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO waste_inputs (` + wasteInputColumns + `)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		input.ID,
		input.Revision,
		input.OrgID,
		input.TraceID,
		input.BulkID,
		[]byte(input.Receipt),
		org,
		input.CreatedAt,
		input.LastUpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert waste input: %w", err)
	}
	return nil
}

func (s *PostgresStore) ApplyConditional(ctx context.Context, update ConditionalUpdate) error {
	receiptExpr, err := receiptExpression(update.Section)
	if err != nil {
		return err
	}

	query := `
		UPDATE waste_inputs
		SET receipt = ` + receiptExpr + `,
			revision = revision + 1,
			trace_id = $4,
			last_updated_at = $5,
			bulk_id = COALESCE(NULLIF($6, ''), bulk_id)
		WHERE id = $1 AND revision = $2
	`
	args := []any{
		update.TrackingID,
		update.ExpectedRevision,
		[]byte(update.Payload),
		update.TraceID,
		update.UpdatedAt,
		update.BulkID,
	}
	if update.ExpectedOrgID != "" {
		query += ` AND org_id = $7`
		args = append(args, update.ExpectedOrgID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("conditional update: %w", err)
	}
	matched, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional update rows affected: %w", err)
	}
	if matched == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// receiptExpression selects how the payload lands in the receipt column: a
// wholesale replacement, or a jsonb_set on a known section path. Section names
// come from a closed enum, never from callers, so inlining them is safe.
func receiptExpression(section models.Section) (string, error) {
	switch section {
	case models.SectionReceipt:
		return `$3::jsonb`, nil
	case models.SectionHazardous, models.SectionPops:
		return fmt.Sprintf(`jsonb_set(COALESCE(receipt, '{}'::jsonb), '{%s}', $3::jsonb, true)`, section), nil
	default:
		return "", fmt.Errorf("unknown receipt section %q", section)
	}
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	org, err := marshalOrg(entry.Snapshot.SubmittingOrganisation)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO waste_inputs_history (
			id, tracking_id, revision, org_id, trace_id, bulk_id,
			receipt, submitting_organisation, created_at, last_updated_at, snapshot_at
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TrackingID,
		entry.Snapshot.Revision,
		entry.Snapshot.OrgID,
		entry.Snapshot.TraceID,
		entry.Snapshot.BulkID,
		[]byte(entry.Snapshot.Receipt),
		org,
		entry.Snapshot.CreatedAt,
		entry.Snapshot.LastUpdatedAt,
		entry.SnapshotAt,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) HistoryCount(ctx context.Context, trackingID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waste_inputs_history WHERE tracking_id = $1`,
		trackingID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history entries: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) HistoryByRevision(ctx context.Context, trackingID string, revision int) (*models.HistoryEntry, error) {
	query := `
		SELECT id, tracking_id, revision, org_id, trace_id, bulk_id,
			   receipt, submitting_organisation, created_at, last_updated_at, snapshot_at
		FROM waste_inputs_history
		WHERE tracking_id = $1 AND revision = $2
	`
	entry, err := scanHistoryEntry(s.db.QueryRowContext(ctx, query, trackingID, revision))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) FindByBulk(ctx context.Context, bulkID string, generation models.BulkRevision) ([]models.WasteInput, error) {
	revisionClause := `revision = 1`
	if generation == models.BulkUpdated {
		revisionClause = `revision > 1`
	}

	liveQuery := `
		SELECT ` + wasteInputColumns + `
		FROM waste_inputs
		WHERE bulk_id = $1 AND ` + revisionClause + `
		ORDER BY created_at, id
	`
	inputs, err := s.queryWasteInputs(ctx, liveQuery, bulkID)
	if err != nil {
		return nil, fmt.Errorf("find by bulk: %w", err)
	}
	if len(inputs) > 0 {
		return inputs, nil
	}

	historyQuery := `
		SELECT tracking_id, revision, org_id, trace_id, bulk_id, receipt,
			   submitting_organisation, created_at, last_updated_at
		FROM waste_inputs_history
		WHERE bulk_id = $1 AND ` + revisionClause + `
		ORDER BY created_at, tracking_id
	`
	inputs, err = s.queryWasteInputs(ctx, historyQuery, bulkID)
	if err != nil {
		return nil, fmt.Errorf("find by bulk in history: %w", err)
	}
	return inputs, nil
}

func (s *PostgresStore) RecordInvalidSubmission(ctx context.Context, submission models.InvalidSubmission) error {
	query := `
		INSERT INTO invalid_submissions (id, tracking_id, attempted_payload, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		submission.ID,
		submission.TrackingID,
		[]byte(submission.AttemptedPayload),
		submission.Reason,
		submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record invalid submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindForAudit(ctx context.Context, lookup AuditLookup) (*models.WasteInput, error) {
	var liveQuery, historyQuery string
	var args []any
	if lookup.TraceID != "" {
		liveQuery = `SELECT ` + wasteInputColumns + ` FROM waste_inputs WHERE trace_id = $1 LIMIT 1`
		historyQuery = `
			SELECT tracking_id, revision, org_id, trace_id, bulk_id, receipt,
				   submitting_organisation, created_at, last_updated_at
			FROM waste_inputs_history WHERE trace_id = $1 LIMIT 1
		`
		args = []any{lookup.TraceID}
	} else {
		liveQuery = `SELECT ` + wasteInputColumns + ` FROM waste_inputs WHERE id = $1 AND revision = $2`
		historyQuery = `
			SELECT tracking_id, revision, org_id, trace_id, bulk_id, receipt,
				   submitting_organisation, created_at, last_updated_at
			FROM waste_inputs_history WHERE tracking_id = $1 AND revision = $2 LIMIT 1
		`
		args = []any{lookup.TrackingID, lookup.Revision}
	}

	input, err := scanWasteInput(s.db.QueryRowContext(ctx, liveQuery, args...))
	if err == nil {
		return input, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find for audit: %w", err)
	}

	input, err = scanWasteInput(s.db.QueryRowContext(ctx, historyQuery, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find for audit in history: %w", err)
	}
	return input, nil
}

func (s *PostgresStore) queryWasteInputs(ctx context.Context, query string, args ...any) ([]models.WasteInput, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inputs []models.WasteInput
	for rows.Next() {
		input, err := scanWasteInput(rows)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, *input)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inputs, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanWasteInput(r row) (*models.WasteInput, error) {
	var input models.WasteInput
	var bulkID sql.NullString
	var receipt, org []byte
	if err := r.Scan(
		&input.ID,
		&input.Revision,
		&input.OrgID,
		&input.TraceID,
		&bulkID,
		&receipt,
		&org,
		&input.CreatedAt,
		&input.LastUpdatedAt,
	); err != nil {
		return nil, err
	}
	if bulkID.Valid {
		input.BulkID = bulkID.String
	}
	input.Receipt = json.RawMessage(receipt)
	if len(org) > 0 {
		var submitting models.SubmittingOrganisation
		if err := json.Unmarshal(org, &submitting); err != nil {
			return nil, fmt.Errorf("decode submitting organisation: %w", err)
		}
		input.SubmittingOrganisation = &submitting
	}
	return &input, nil
}

func scanHistoryEntry(r row) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var bulkID sql.NullString
	var receipt, org []byte
	if err := r.Scan(
		&entry.ID,
		&entry.TrackingID,
		&entry.Snapshot.Revision,
		&entry.Snapshot.OrgID,
		&entry.Snapshot.TraceID,
		&bulkID,
		&receipt,
		&org,
		&entry.Snapshot.CreatedAt,
		&entry.Snapshot.LastUpdatedAt,
		&entry.SnapshotAt,
	); err != nil {
		return nil, err
	}
	entry.Snapshot.ID = entry.TrackingID
	if bulkID.Valid {
		entry.Snapshot.BulkID = bulkID.String
	}
	entry.Snapshot.Receipt = json.RawMessage(receipt)
	if len(org) > 0 {
		var submitting models.SubmittingOrganisation
		if err := json.Unmarshal(org, &submitting); err != nil {
			return nil, fmt.Errorf("decode submitting organisation: %w", err)
		}
		entry.Snapshot.SubmittingOrganisation = &submitting
	}
	return &entry, nil
}

func marshalOrg(org *models.SubmittingOrganisation) ([]byte, error) {
	if org == nil {
		return nil, nil
	}
	out, err := json.Marshal(org)
	if err != nil {
		return nil, fmt.Errorf("encode submitting organisation: %w", err)
	}
	return out, nil
}
