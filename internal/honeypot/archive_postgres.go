package honeypot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type reportQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresReportArchive keeps delivered reports in the honeypot_reports table.
type PostgresReportArchive struct {
	db reportQuerier
}

func NewPostgresReportArchive(pool *pgxpool.Pool) *PostgresReportArchive {
	if pool == nil {
		panic("honeypot: pgx pool required")
	}
	return &PostgresReportArchive{db: pool}
}

func newPostgresReportArchiveWithQuerier(db reportQuerier) *PostgresReportArchive {
	if db == nil {
		panic("honeypot: querier required")
	}
	return &PostgresReportArchive{db: db}
}

// Archive inserts the report. A session is archived at most once.
func (a *PostgresReportArchive) Archive(ctx context.Context, payload CallbackPayload) error {
	intel, err := json.Marshal(payload.ExtractedIntelligence)
	if err != nil {
		return fmt.Errorf("honeypot: marshal intelligence: %w", err)
	}
	query := `
		INSERT INTO honeypot_reports (session_id, scam_detected, total_messages, intelligence, agent_notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING
	`
	if _, err := a.db.Exec(ctx, query,
		payload.SessionID,
		payload.ScamDetected,
		payload.TotalMessagesExchanged,
		intel,
		payload.AgentNotes,
	); err != nil {
		return fmt.Errorf("honeypot: insert report: %w", err)
	}
	return nil
}

// Load returns the archived report for sessionID.
func (a *PostgresReportArchive) Load(ctx context.Context, sessionID string) (*CallbackPayload, error) {
	query := `
		SELECT scam_detected, total_messages, intelligence, agent_notes
		FROM honeypot_reports
		WHERE session_id = $1
	`
	payload := CallbackPayload{SessionID: sessionID}
	var intel []byte
	err := a.db.QueryRow(ctx, query, sessionID).Scan(
		&payload.ScamDetected,
		&payload.TotalMessagesExchanged,
		&intel,
		&payload.AgentNotes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("honeypot: no archived report for session %s", sessionID)
		}
		return nil, fmt.Errorf("honeypot: load report: %w", err)
	}
	if err := json.Unmarshal(intel, &payload.ExtractedIntelligence); err != nil {
		return nil, fmt.Errorf("honeypot: decode intelligence: %w", err)
	}
	return &payload, nil
}

var _ ReportArchive = (*PostgresReportArchive)(nil)
