package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/wharfside/deepresearch/internal/store"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	cleanup := func() {
		_ = db.Close()
	}
	return &PostgresStore{db: db}, mock, cleanup
}

func TestVerifySchema_MissingTable(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))
	if err := verifySchema(ctx, pgStore.db); err == nil {
		t.Fatal("expected schema verification error for missing table")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVerifySchema_QueryError(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("query error"))
	if err := verifySchema(ctx, pgStore.db); err == nil {
		t.Fatal("expected schema verification error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateResearchRun(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO research_runs").
		WithArgs("r-1", "thread_1", "asst_1", "run_1", "opening hours?", store.StatusRunning, nil, "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pgStore.CreateResearchRun(ctx, store.ResearchRun{
		ID:        "r-1",
		ThreadID:  "thread_1",
		AgentID:   "asst_1",
		RemoteRun: "run_1",
		Prompt:    "opening hours?",
		Status:    store.StatusRunning,
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateResearchRun_NotFound(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("UPDATE research_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := pgStore.UpdateResearchRun(ctx, store.ResearchRun{ID: "missing", Status: store.StatusFailed, UpdatedAt: "2026-01-01T00:00:00Z"})
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetResearchRun_MissingIsNil(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, thread_id, agent_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	run, err := pgStore.GetResearchRun(ctx, "missing")
	if err != nil {
		t.Fatalf("expected no error for missing run, got %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

func TestListResearchRuns(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "thread_id", "agent_id", "remote_run_id", "prompt", "status", "error", "created_at", "updated_at"}).
		AddRow("r-2", "thread_1", "asst_1", "run_2", "menus?", store.StatusCompleted, nil, "2026-02-01T00:00:00Z", "2026-02-01T00:05:00Z").
		AddRow("r-1", "thread_1", "asst_1", nil, "hours?", store.StatusFailed, "server_error: boom", "2026-01-01T00:00:00Z", "2026-01-01T00:01:00Z")
	mock.ExpectQuery("SELECT id, thread_id, agent_id").WillReturnRows(rows)

	runs, err := pgStore.ListResearchRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "r-2" || runs[0].RemoteRun != "run_2" {
		t.Errorf("unexpected first run: %+v", runs[0])
	}
	if runs[1].Error != "server_error: boom" {
		t.Errorf("expected error detail preserved, got %+v", runs[1])
	}
}

func TestListResearchRuns_RowsErr(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "thread_id", "agent_id", "remote_run_id", "prompt", "status", "error", "created_at", "updated_at"}).
		AddRow("r-1", "thread_1", "asst_1", nil, "hours?", store.StatusRunning, nil, "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z")
	rows.RowError(0, errors.New("row error"))
	mock.ExpectQuery("SELECT id, thread_id, agent_id").WillReturnRows(rows)

	if _, err := pgStore.ListResearchRuns(ctx); err == nil {
		t.Fatal("expected rows error")
	}
}

func TestAppendEvent(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO research_events").
		WithArgs("r-1", int64(3), "reasoning", "2026-01-01T00:00:03Z", "Reasoning: reading sources").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pgStore.AppendEvent(ctx, store.ProgressEvent{
		ResearchID: "r-1",
		Seq:        3,
		Type:       "reasoning",
		Timestamp:  "2026-01-01T00:00:03Z",
		Text:       "Reasoning: reading sources",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"research_id", "seq", "type", "ts", "text"}).
		AddRow("r-1", int64(3), "reasoning", "2026-01-01T00:00:03Z", "Reasoning: reading sources").
		AddRow("r-1", int64(4), "status", "2026-01-01T00:00:04Z", "completed")
	mock.ExpectQuery("SELECT research_id, seq, type, ts, text").
		WithArgs("r-1", int64(2)).
		WillReturnRows(rows)

	listed, err := pgStore.ListEvents(ctx, "r-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Seq != 3 || listed[1].Text != "completed" {
		t.Errorf("unexpected events: %+v", listed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListEvents_QueryError(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT research_id, seq, type, ts, text").
		WillReturnError(errors.New("query error"))

	if _, err := pgStore.ListEvents(ctx, "r-1", 0); err == nil {
		t.Fatal("expected query error")
	}
}

func TestSaveAndGetReport(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO reports").
		WithArgs("r-1", "# Title", "<h1>Title</h1>", "2026-01-01T00:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := pgStore.SaveReport(ctx, store.Report{ResearchID: "r-1", Markdown: "# Title", HTML: "<h1>Title</h1>", CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	mock.ExpectQuery("SELECT research_id, markdown, html, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"research_id", "markdown", "html", "created_at"}).
			AddRow("r-1", "# Title", "<h1>Title</h1>", "2026-01-01T00:00:00Z"))
	report, err := pgStore.GetReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if report == nil || report.Markdown != "# Title" {
		t.Errorf("unexpected report: %+v", report)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetReport_MissingIsNil(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT research_id, markdown, html, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"research_id"}))

	report, err := pgStore.GetReport(ctx, "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report, got %+v", report)
	}
}
