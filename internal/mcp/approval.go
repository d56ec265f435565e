package mcpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Events the desktop app emits when it surfaces approvals from the
// mcp_approvals table.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

const (
	approvalPending  = "pending"
	approvalApproved = "approved"
	approvalRejected = "rejected"
)

// ErrRejected is returned when the user turns down a destructive tool call.
var ErrRejected = errors.New("action rejected by user")

// ErrNoApprovals is returned by destructive tools when the server has no
// approval database.
var ErrNoApprovals = errors.New("approvals unavailable")

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON, e.g. {"blockId": "..."} for highlighting
}

// ApprovalQueue gates destructive MCP tool calls on a human decision. The
// standalone MCP process writes a row to mcp_approvals and polls it; the
// desktop app lists pending rows and records the answer.
type ApprovalQueue struct {
	ctx     context.Context
	db      *sql.DB
	timeout time.Duration
	poll    time.Duration
}

func NewApprovalQueue(ctx context.Context, db *sql.DB) *ApprovalQueue {
	return &ApprovalQueue{
		ctx:     ctx,
		db:      db,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// Request records an approval request and blocks until it is approved,
// rejected, timed out, or ctx is done. The row is removed on return.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description, metadata string) error {
	if q.db == nil {
		return fmt.Errorf("%s: %w", tool, ErrNoApprovals)
	}
	id := uuid.New().String()
	if metadata == "" {
		metadata = "{}"
	}
	ctx, cancel := q.bound(ctx)
	defer cancel()

	_, err := q.db.Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES (?, ?, ?, ?, ?)`,
		id, tool, description, approvalPending, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	defer q.db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)

	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var status string
			if err := q.db.QueryRow(`SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status); err != nil {
				continue
			}
			switch status {
			case approvalApproved:
				return nil
			case approvalRejected:
				return fmt.Errorf("%w: %s", ErrRejected, tool)
			}
		case <-ctx.Done():
			return q.failure(ctx, tool)
		}
	}
}

// bound derives a context that ends with the request, the queue owner, or
// the approval timeout, whichever comes first.
func (q *ApprovalQueue) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	stop := context.AfterFunc(q.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (q *ApprovalQueue) failure(ctx context.Context, tool string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	}
	return fmt.Errorf("approval for %s: %w", tool, ctx.Err())
}

// ── Desktop side ──────────────────────────────────────────

// ListPendingApprovals returns approvals written by a standalone MCP process.
func ListPendingApprovals(db *sql.DB) ([]PendingAction, error) {
	rows, err := db.Query(
		`SELECT id, tool, description, metadata, created_at FROM mcp_approvals WHERE status = ? ORDER BY created_at`,
		approvalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []PendingAction
	for rows.Next() {
		var p PendingAction
		if err := rows.Scan(&p.ID, &p.Tool, &p.Description, &p.Metadata, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResolveApproval records the user's decision for a DB-mode approval.
func ResolveApproval(db *sql.DB, id string, approved bool) error {
	status := approvalRejected
	if approved {
		status = approvalApproved
	}
	res, err := db.Exec(`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`, status, id, approvalPending)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approval %s is not pending", id)
	}
	return nil
}
