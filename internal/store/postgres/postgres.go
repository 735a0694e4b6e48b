package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wharfside/deepresearch/internal/store"
)

type PostgresStore struct {
	db *sql.DB
}

var openDB = sql.Open

func New(conn string) (*PostgresStore, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	required := []string{
		"research_runs",
		"research_events",
		"reports",
	}
	for _, table := range required {
		var regclass sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", fmt.Sprintf("public.%s", table)).Scan(&regclass); err != nil {
			return err
		}
		if !regclass.Valid {
			return fmt.Errorf("database schema missing: %s table not found (run migrations/001_init.sql)", table)
		}
	}
	return nil
}

func (p *PostgresStore) CreateResearchRun(ctx context.Context, run store.ResearchRun) error {
	const query = `
		INSERT INTO research_runs (
			id,
			thread_id,
			agent_id,
			remote_run_id,
			prompt,
			status,
			error,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := p.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.ThreadID,
		run.AgentID,
		nullString(run.RemoteRun),
		run.Prompt,
		run.Status,
		nullString(run.Error),
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) UpdateResearchRun(ctx context.Context, run store.ResearchRun) error {
	const query = `
		UPDATE research_runs
		SET status = $2, error = $3, remote_run_id = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := p.db.ExecContext(ctx, query, run.ID, run.Status, nullString(run.Error), nullString(run.RemoteRun), run.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("research run not found: %s", run.ID)
	}
	return nil
}

func (p *PostgresStore) GetResearchRun(ctx context.Context, researchID string) (*store.ResearchRun, error) {
	const query = `
		SELECT id, thread_id, agent_id, remote_run_id, prompt, status, error, created_at, updated_at
		FROM research_runs
		WHERE id = $1
	`
	run, err := scanResearchRun(p.db.QueryRowContext(ctx, query, researchID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (p *PostgresStore) ListResearchRuns(ctx context.Context) ([]store.ResearchRun, error) {
	const query = `
		SELECT id, thread_id, agent_id, remote_run_id, prompt, status, error, created_at, updated_at
		FROM research_runs
		ORDER BY created_at DESC
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []store.ResearchRun{}
	for rows.Next() {
		run, err := scanResearchRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (p *PostgresStore) AppendEvent(ctx context.Context, event store.ProgressEvent) error {
	const query = `
		INSERT INTO research_events (research_id, seq, type, ts, text)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := p.db.ExecContext(ctx, query, event.ResearchID, event.Seq, event.Type, event.Timestamp, event.Text)
	return err
}

func (p *PostgresStore) ListEvents(ctx context.Context, researchID string, afterSeq int64) ([]store.ProgressEvent, error) {
	const query = `
		SELECT research_id, seq, type, ts, text
		FROM research_events
		WHERE research_id = $1 AND seq > $2
		ORDER BY seq ASC
	`
	rows, err := p.db.QueryContext(ctx, query, researchID, afterSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	eventsOut := []store.ProgressEvent{}
	for rows.Next() {
		event := store.ProgressEvent{}
		if err := rows.Scan(&event.ResearchID, &event.Seq, &event.Type, &event.Timestamp, &event.Text); err != nil {
			return nil, err
		}
		eventsOut = append(eventsOut, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return eventsOut, nil
}

func (p *PostgresStore) SaveReport(ctx context.Context, report store.Report) error {
	const query = `
		INSERT INTO reports (research_id, markdown, html, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (research_id)
		DO UPDATE SET markdown = EXCLUDED.markdown, html = EXCLUDED.html, created_at = EXCLUDED.created_at
	`
	_, err := p.db.ExecContext(ctx, query, report.ResearchID, report.Markdown, report.HTML, report.CreatedAt)
	return err
}

func (p *PostgresStore) GetReport(ctx context.Context, researchID string) (*store.Report, error) {
	const query = `
		SELECT research_id, markdown, html, created_at
		FROM reports
		WHERE research_id = $1
	`
	report := store.Report{}
	err := p.db.QueryRowContext(ctx, query, researchID).Scan(&report.ResearchID, &report.Markdown, &report.HTML, &report.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResearchRun(row rowScanner) (*store.ResearchRun, error) {
	run := store.ResearchRun{}
	var remoteRun, errorDetail sql.NullString
	if err := row.Scan(
		&run.ID,
		&run.ThreadID,
		&run.AgentID,
		&remoteRun,
		&run.Prompt,
		&run.Status,
		&errorDetail,
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		return nil, err
	}
	run.RemoteRun = remoteRun.String
	run.Error = errorDetail.String
	return &run, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
