// Package store implements the StateStore (spec §4.7): the durable
// per-apply row, admission's single-active-apply invariant, and the
// cancel/resume state machine (spec §4.4). Grounded on the teacher's
// internal/bmdemo/store package for the "one row per run, CRUD plus
// transitions, no business logic" shape, and on
// ipiton-alert-history-service's internal/database/postgres (pgxpool
// wiring) and internal/infrastructure/repository/postgres_history.go
// (direct *pgxpool.Pool query style) for the concrete pgx/v5 usage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// Store is the pgx-backed StateStore.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to dsn, retrying per spec §4.7 ("connection attempts are
// retried up to 5 times with a fixed 5-second interval").
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var pool *pgxpool.Pool
	attempt := 0
	b := retry.WithMaxRetries(4, retry.NewConstant(5*time.Second))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			logger.Warn("database connect attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.Warn("database ping attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, applyerr.Newf(applyerr.E40018, 0, "connect to database: %v", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// withSerializableTx runs fn inside a SERIALIZABLE transaction, retrying on
// serialization failure (Postgres error 40001) per spec §4.7.
func (s *Store) withSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 10
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return applyerr.Newf(applyerr.E40018, 0, "begin transaction: %v", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback(ctx)
			if isSerializationFailure(err) && attempt < maxAttempts {
				continue
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			if isSerializationFailure(err) && attempt < maxAttempts {
				continue
			}
			return applyerr.Newf(applyerr.E40018, 0, "commit transaction: %v", err)
		}
		return nil
	}
	return applyerr.New(applyerr.E40018, "exhausted serialization-failure retries")
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Register admits a new apply. When isEmpty is true the row is persisted
// directly as COMPLETED (spec §4.4 "Empty plans are recorded as COMPLETED
// immediately"), with EndedAt stamped. Otherwise it is IN_PROGRESS.
// StartedAt is stamped in both cases.
// Admission's single-active invariant is enforced by the partial unique
// index; a violation surfaces as E40010 (another apply is active) or
// E40027 (a SUSPENDED apply already exists) depending on what is active.
func (s *Store) Register(ctx context.Context, plan model.Plan, isEmpty bool) (string, error) {
	var applyID string
	now := time.Now().UTC()

	status := model.ApplyInProgress
	var startedAt, endedAt time.Time
	startedAt = now
	if isEmpty {
		status = model.ApplyCompleted
		endedAt = now
	}

	proceduresJSON, err := json.Marshal(plan)
	if err != nil {
		return "", applyerr.New(applyerr.E40001, "marshal procedures: %v", err)
	}

	for attempt := 0; attempt < 5; attempt++ {
		id, err := newApplyID()
		if err != nil {
			return "", applyerr.New(applyerr.E40018, "generate applyId: %v", err)
		}

		txErr := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
			active, aerr := s.anyActive(ctx, tx)
			if aerr != nil {
				return aerr
			}
			if active.suspended {
				return applyerr.Newf(applyerr.E40027, 409, "admission blocked: a suspended apply already exists")
			}
			if active.any {
				return applyerr.Newf(applyerr.E40010, 409, "admission blocked: another apply is active")
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO applystatus (apply_id, status, rollback_status, procedures, started_at, ended_at)
				VALUES ($1, $2, '', $3, $4, $5)`,
				id, string(status), proceduresJSON, nullTime(startedAt), nullTime(endedAt))
			if err != nil {
				if isUniqueViolation(err) {
					return err // caller retries with a fresh id or surfaces admission conflict
				}
				return applyerr.New(applyerr.E40019, "insert apply row: %v", err)
			}
			applyID = id
			return nil
		})
		if txErr == nil {
			return applyID, nil
		}
		if isUniqueViolation(txErr) {
			continue
		}
		return "", txErr
	}
	return "", applyerr.New(applyerr.E40018, "exhausted applyId collision retries")
}

type activeState struct {
	any       bool
	suspended bool
}

func (s *Store) anyActive(ctx context.Context, tx pgx.Tx) (activeState, error) {
	rows, err := tx.Query(ctx, `
		SELECT status, rollback_status FROM applystatus
		WHERE status IN ('IN_PROGRESS', 'CANCELING', 'SUSPENDED')
		   OR rollback_status IN ('IN_PROGRESS', 'SUSPENDED')`)
	if err != nil {
		return activeState{}, applyerr.New(applyerr.E40019, "query active applies: %v", err)
	}
	defer rows.Close()

	var st activeState
	for rows.Next() {
		var status, rollbackStatus string
		if err := rows.Scan(&status, &rollbackStatus); err != nil {
			return activeState{}, applyerr.New(applyerr.E40019, "scan active applies: %v", err)
		}
		st.any = true
		if status == string(model.ApplySuspended) || rollbackStatus == string(model.RollbackSuspended) {
			st.suspended = true
		}
	}
	return st, rows.Err()
}

// UpdateOpts is a partial update to an apply row. Zero-value fields leave
// the corresponding column unchanged.
type UpdateOpts struct {
	Status             *model.ApplyStatus
	RollbackStatus     *model.RollbackStatus
	ApplyResult        []model.OpResult
	RollbackProcedures *model.Plan
	RollbackResult     []model.OpResult
	ResumeProcedures   *model.Plan
	ResumeResult       []model.OpResult
	ExecuteRollback    *bool
	EndedAt            *time.Time
	CanceledAt         *time.Time
	RollbackStartedAt  *time.Time
	RollbackEndedAt    *time.Time
	SuspendedAt        *time.Time
	ResumedAt          *time.Time
	Process            *model.ProcessInfo
}

// Update applies a partial update. Idempotent: re-applying the same opts
// against a row already in that state is a no-op column-wise.
func (s *Store) Update(ctx context.Context, applyID string, opts UpdateOpts) error {
	sets := make([]string, 0, 16)
	args := make([]any, 0, 16)
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if opts.Status != nil {
		add("status", string(*opts.Status))
	}
	if opts.RollbackStatus != nil {
		add("rollback_status", string(*opts.RollbackStatus))
	}
	if opts.ApplyResult != nil {
		b, err := json.Marshal(opts.ApplyResult)
		if err != nil {
			return applyerr.New(applyerr.E40001, "marshal applyResult: %v", err)
		}
		add("apply_result", b)
	}
	if opts.RollbackProcedures != nil {
		b, err := json.Marshal(opts.RollbackProcedures)
		if err != nil {
			return applyerr.New(applyerr.E40001, "marshal rollbackProcedures: %v", err)
		}
		add("rollback_procedures", b)
	}
	if opts.RollbackResult != nil {
		b, err := json.Marshal(opts.RollbackResult)
		if err != nil {
			return applyerr.New(applyerr.E40001, "marshal rollbackResult: %v", err)
		}
		add("rollback_result", b)
	}
	if opts.ResumeProcedures != nil {
		b, err := json.Marshal(opts.ResumeProcedures)
		if err != nil {
			return applyerr.New(applyerr.E40001, "marshal resumeProcedures: %v", err)
		}
		add("resume_procedures", b)
	}
	if opts.ResumeResult != nil {
		b, err := json.Marshal(opts.ResumeResult)
		if err != nil {
			return applyerr.New(applyerr.E40001, "marshal resumeResult: %v", err)
		}
		add("resume_result", b)
	}
	if opts.ExecuteRollback != nil {
		add("execute_rollback", *opts.ExecuteRollback)
	}
	if opts.EndedAt != nil {
		add("ended_at", *opts.EndedAt)
	}
	if opts.CanceledAt != nil {
		add("canceled_at", *opts.CanceledAt)
	}
	if opts.RollbackStartedAt != nil {
		add("rollback_started_at", *opts.RollbackStartedAt)
	}
	if opts.RollbackEndedAt != nil {
		add("rollback_ended_at", *opts.RollbackEndedAt)
	}
	if opts.SuspendedAt != nil {
		add("suspended_at", *opts.SuspendedAt)
	}
	if opts.ResumedAt != nil {
		add("resumed_at", *opts.ResumedAt)
	}
	if opts.Process != nil {
		add("pid", opts.Process.PID)
		add("execution_command", opts.Process.ExecutionCommand)
		add("process_started_at", opts.Process.ProcessStartedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	return s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		args = append(args, applyID)
		query := fmt.Sprintf("UPDATE applystatus SET %s WHERE apply_id = $%d", strings.Join(sets, ", "), len(args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return applyerr.New(applyerr.E40019, "update apply row: %v", err)
		}
		if tag.RowsAffected() == 0 {
			return applyerr.Newf(applyerr.E40020, 404, "applyId %q not found", applyID)
		}
		return nil
	})
}

// Transition is the outcome of a cancel or resume request: the state the
// row actually landed in, plus an error code when the request could not be
// honoured as asked (spec §4.4 table).
type Transition struct {
	Status         model.ApplyStatus
	RollbackStatus model.RollbackStatus
	Err            *applyerr.Error
}

// CancelRequest implements the cancel state machine (spec §4.4 table).
// alive reports whether the process recorded at dispatch time is still
// running (the liveness triple check); the caller (LifecycleController)
// computes it via internal/layoutapply/liveness before calling in.
func (s *Store) CancelRequest(ctx context.Context, applyID string, rollback bool, alive bool) (Transition, error) {
	var result Transition
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var status, rollbackStatus string
		err := tx.QueryRow(ctx, `SELECT status, rollback_status FROM applystatus WHERE apply_id = $1 FOR UPDATE`, applyID).Scan(&status, &rollbackStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return applyerr.Newf(applyerr.E40020, 404, "applyId %q not found", applyID)
		}
		if err != nil {
			return applyerr.New(applyerr.E40019, "read apply row: %v", err)
		}

		now := time.Now().UTC()
		switch {
		case status == string(model.ApplyInProgress) && alive:
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET status = $1, canceled_at = $2, execute_rollback = $3 WHERE apply_id = $4`,
				string(model.ApplyCanceling), now, rollback, applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyCanceling}

		case status == string(model.ApplyInProgress) && !alive:
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET status = $1 WHERE apply_id = $2`, string(model.ApplyFailed), applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyFailed, Err: applyerr.Newf(applyerr.E40028, 409, "driving subprocess vanished")}

		case status == string(model.ApplyCanceled) && rollbackStatus == string(model.RollbackInProgress):
			if alive {
				result = Transition{Status: model.ApplyCanceled, RollbackStatus: model.RollbackInProgress}
			} else {
				if _, err := tx.Exec(ctx, `UPDATE applystatus SET rollback_status = $1 WHERE apply_id = $2`, string(model.RollbackFailed), applyID); err != nil {
					return applyerr.New(applyerr.E40019, "update apply row: %v", err)
				}
				result = Transition{Status: model.ApplyCanceled, RollbackStatus: model.RollbackFailed, Err: applyerr.Newf(applyerr.E40028, 409, "driving subprocess vanished")}
			}

		case status == string(model.ApplySuspended):
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET status = $1 WHERE apply_id = $2`, string(model.ApplyFailed), applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyFailed}

		case rollbackStatus == string(model.RollbackSuspended):
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET rollback_status = $1 WHERE apply_id = $2`, string(model.RollbackFailed), applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyStatus(status), RollbackStatus: model.RollbackFailed}

		case status == string(model.ApplyCanceling) || (status == string(model.ApplyCanceled) && rollbackStatus == ""):
			result = Transition{Status: model.ApplyStatus(status), RollbackStatus: model.RollbackStatus(rollbackStatus)}

		case status == string(model.ApplyCompleted) || status == string(model.ApplyFailed):
			result = Transition{Status: model.ApplyStatus(status), Err: applyerr.Newf(applyerr.E40022, 409, "apply already reached a terminal state")}

		default:
			result = Transition{Status: model.ApplyStatus(status), RollbackStatus: model.RollbackStatus(rollbackStatus)}
		}
		return nil
	})
	return result, err
}

// ResumeRequest transitions the SUSPENDED phase (apply or rollback) to
// IN_PROGRESS, stamping ResumedAt.
func (s *Store) ResumeRequest(ctx context.Context, applyID string) (Transition, error) {
	var result Transition
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var status, rollbackStatus string
		err := tx.QueryRow(ctx, `SELECT status, rollback_status FROM applystatus WHERE apply_id = $1 FOR UPDATE`, applyID).Scan(&status, &rollbackStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return applyerr.Newf(applyerr.E40020, 404, "applyId %q not found", applyID)
		}
		if err != nil {
			return applyerr.New(applyerr.E40019, "read apply row: %v", err)
		}

		now := time.Now().UTC()
		switch {
		case rollbackStatus == string(model.RollbackSuspended):
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET rollback_status = $1, resumed_at = $2 WHERE apply_id = $3`,
				string(model.RollbackInProgress), now, applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyStatus(status), RollbackStatus: model.RollbackInProgress}
		case status == string(model.ApplySuspended):
			if _, err := tx.Exec(ctx, `UPDATE applystatus SET status = $1, resumed_at = $2 WHERE apply_id = $3`,
				string(model.ApplyInProgress), now, applyID); err != nil {
				return applyerr.New(applyerr.E40019, "update apply row: %v", err)
			}
			result = Transition{Status: model.ApplyInProgress}
		default:
			return applyerr.Newf(applyerr.E40022, 409, "no suspended phase to resume")
		}
		return nil
	})
	return result, err
}

// Get loads one apply row in full.
func (s *Store) Get(ctx context.Context, applyID string) (model.ApplyRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT apply_id, status, rollback_status, procedures, apply_result,
		       rollback_procedures, rollback_result, resume_procedures, resume_result,
		       execute_rollback, started_at, ended_at, canceled_at,
		       rollback_started_at, rollback_ended_at, suspended_at, resumed_at,
		       pid, execution_command, process_started_at
		FROM applystatus WHERE apply_id = $1`, applyID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ApplyRecord{}, applyerr.Newf(applyerr.E40020, 404, "applyId %q not found", applyID)
	}
	if err != nil {
		return model.ApplyRecord{}, applyerr.New(applyerr.E40019, "read apply row: %v", err)
	}
	return rec, nil
}

// ListFilter narrows and paginates List results (spec §4.7).
type ListFilter struct {
	Status    model.ApplyStatus
	StartedFrom, StartedTo time.Time
	EndedFrom, EndedTo     time.Time
	SortBy    string // "startedAt" | "endedAt"
	SortDesc  bool
	Limit     int
	Offset    int
}

// ListResult is the paginated response envelope.
type ListResult struct {
	TotalCount int
	Count      int
	Items      []model.ApplyRecord
}

// List returns applies matching filter, paginated and sorted.
func (s *Store) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(clause string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.StartedFrom.IsZero() {
		add("started_at >= $%d", filter.StartedFrom)
	}
	if !filter.StartedTo.IsZero() {
		add("started_at <= $%d", filter.StartedTo)
	}
	if !filter.EndedFrom.IsZero() {
		add("ended_at >= $%d", filter.EndedFrom)
	}
	if !filter.EndedTo.IsZero() {
		add("ended_at <= $%d", filter.EndedTo)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM applystatus WHERE "+whereClause, args...).Scan(&total); err != nil {
		return ListResult{}, applyerr.New(applyerr.E40019, "count apply rows: %v", err)
	}

	sortCol := "started_at"
	if filter.SortBy == "endedAt" {
		sortCol = "ended_at"
	}
	order := "ASC"
	if filter.SortDesc {
		order = "DESC"
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT apply_id, status, rollback_status, procedures, apply_result,
		       rollback_procedures, rollback_result, resume_procedures, resume_result,
		       execute_rollback, started_at, ended_at, canceled_at,
		       rollback_started_at, rollback_ended_at, suspended_at, resumed_at,
		       pid, execution_command, process_started_at
		FROM applystatus WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		whereClause, sortCol, order, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, applyerr.New(applyerr.E40019, "list apply rows: %v", err)
	}
	defer rows.Close()

	var items []model.ApplyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return ListResult{}, applyerr.New(applyerr.E40019, "scan apply row: %v", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, applyerr.New(applyerr.E40019, "list apply rows: %v", err)
	}

	return ListResult{TotalCount: total, Count: len(items), Items: items}, nil
}

// Delete removes a terminal apply row. Refused with E40024 if the row is
// still non-terminal.
func (s *Store) Delete(ctx context.Context, applyID string) error {
	return s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var status, rollbackStatus string
		err := tx.QueryRow(ctx, `SELECT status, rollback_status FROM applystatus WHERE apply_id = $1 FOR UPDATE`, applyID).Scan(&status, &rollbackStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return applyerr.Newf(applyerr.E40020, 404, "applyId %q not found", applyID)
		}
		if err != nil {
			return applyerr.New(applyerr.E40019, "read apply row: %v", err)
		}
		if model.ApplyStatus(status).Active() || model.RollbackStatus(rollbackStatus).Active() {
			return applyerr.Newf(applyerr.E40024, 409, "applyId %q is not in a terminal state", applyID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM applystatus WHERE apply_id = $1`, applyID); err != nil {
			return applyerr.New(applyerr.E40019, "delete apply row: %v", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.ApplyRecord, error) {
	var rec model.ApplyRecord
	var status, rollbackStatus string
	var proceduresJSON []byte
	var applyResultJSON, rollbackProceduresJSON, rollbackResultJSON, resumeProceduresJSON, resumeResultJSON []byte
	var startedAt, endedAt, canceledAt, rollbackStartedAt, rollbackEndedAt, suspendedAt, resumedAt, processStartedAt *time.Time
	var pid *int32
	var executionCommand *string

	err := row.Scan(
		&rec.ApplyID, &status, &rollbackStatus, &proceduresJSON, &applyResultJSON,
		&rollbackProceduresJSON, &rollbackResultJSON, &resumeProceduresJSON, &resumeResultJSON,
		&rec.ExecuteRollback, &startedAt, &endedAt, &canceledAt,
		&rollbackStartedAt, &rollbackEndedAt, &suspendedAt, &resumedAt,
		&pid, &executionCommand, &processStartedAt,
	)
	if err != nil {
		return model.ApplyRecord{}, err
	}

	rec.Status = model.ApplyStatus(status)
	rec.RollbackStatus = model.RollbackStatus(rollbackStatus)
	if err := json.Unmarshal(proceduresJSON, &rec.Procedures); err != nil {
		return model.ApplyRecord{}, fmt.Errorf("unmarshal procedures: %w", err)
	}
	if applyResultJSON != nil {
		if err := json.Unmarshal(applyResultJSON, &rec.ApplyResult); err != nil {
			return model.ApplyRecord{}, fmt.Errorf("unmarshal applyResult: %w", err)
		}
	}
	if rollbackProceduresJSON != nil {
		var p model.Plan
		if err := json.Unmarshal(rollbackProceduresJSON, &p); err != nil {
			return model.ApplyRecord{}, fmt.Errorf("unmarshal rollbackProcedures: %w", err)
		}
		rec.RollbackProcedures = &p
	}
	if rollbackResultJSON != nil {
		if err := json.Unmarshal(rollbackResultJSON, &rec.RollbackResult); err != nil {
			return model.ApplyRecord{}, fmt.Errorf("unmarshal rollbackResult: %w", err)
		}
	}
	if resumeProceduresJSON != nil {
		var p model.Plan
		if err := json.Unmarshal(resumeProceduresJSON, &p); err != nil {
			return model.ApplyRecord{}, fmt.Errorf("unmarshal resumeProcedures: %w", err)
		}
		rec.ResumeProcedures = &p
	}
	if resumeResultJSON != nil {
		if err := json.Unmarshal(resumeResultJSON, &rec.ResumeResult); err != nil {
			return model.ApplyRecord{}, fmt.Errorf("unmarshal resumeResult: %w", err)
		}
	}

	assignTime(&rec.StartedAt, startedAt)
	assignTime(&rec.EndedAt, endedAt)
	assignTime(&rec.CanceledAt, canceledAt)
	assignTime(&rec.RollbackStartedAt, rollbackStartedAt)
	assignTime(&rec.RollbackEndedAt, rollbackEndedAt)
	assignTime(&rec.SuspendedAt, suspendedAt)
	assignTime(&rec.ResumedAt, resumedAt)

	if pid != nil {
		rec.Process.PID = *pid
	}
	if executionCommand != nil {
		rec.Process.ExecutionCommand = *executionCommand
	}
	assignTime(&rec.Process.ProcessStartedAt, processStartedAt)

	return rec, nil
}

func assignTime(dst *time.Time, src *time.Time) {
	if src != nil {
		*dst = *src
	}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
