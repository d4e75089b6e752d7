// Package audit keeps a trail of sensitive actions: checkouts, order
// deletions, catalog writes and logins.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"shop_back_end/internal/models"
)

const (
	ActionOrderCreate   = "order.create"
	ActionOrderDelete   = "order.delete"
	ActionProductCreate = "product.create"
	ActionProductUpdate = "product.update"
	ActionProductDelete = "product.delete"
	ActionLogin         = "auth.login"
)

const (
	ResourceOrder   = "order"
	ResourceProduct = "product"
	ResourceAuth    = "auth"
)

type Recorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// NewEntry stamps a fresh time-based id and the current time.
func NewEntry(action, resource, resourceID string) models.AuditLog {
	return models.AuditLog{
		ID:         uuid.UUID(gocql.TimeUUID()),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
	}
}

// LogRecorder writes entries to a structured logger. It is used when no
// Scylla cluster is configured.
type LogRecorder struct {
	log *slog.Logger
}

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{log: logger}
}

func (r *LogRecorder) Record(ctx context.Context, e models.AuditLog) {
	r.log.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_id", e.ID.String()),
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.String("user_id", e.UserID),
		slog.String("ip", e.IPAddress),
		slog.Bool("success", e.Success),
		slog.Int("status", e.Status),
	)
}

const insertAuditLog = `INSERT INTO audit_logs (
	id, user_id, user_email, action, resource, resource_id,
	ip_address, user_agent, success, status, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const createAuditTable = `CREATE TABLE IF NOT EXISTS audit_logs (
	id timeuuid PRIMARY KEY,
	user_id text,
	user_email text,
	action text,
	resource text,
	resource_id text,
	ip_address text,
	user_agent text,
	success boolean,
	status int,
	timestamp timestamp
)`

const writeTimeout = 5 * time.Second

// ScyllaRecorder writes entries to the audit_logs table without blocking
// the request. Close waits for pending writes.
type ScyllaRecorder struct {
	session *gocql.Session
	log     *slog.Logger
	wg      sync.WaitGroup
}

func NewScyllaRecorder(session *gocql.Session, logger *slog.Logger) *ScyllaRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScyllaRecorder{session: session, log: logger}
}

// EnsureTable creates audit_logs in the session keyspace.
func (r *ScyllaRecorder) EnsureTable(ctx context.Context) error {
	return r.session.Query(createAuditTable).WithContext(ctx).Exec()
}

func (r *ScyllaRecorder) Record(ctx context.Context, e models.AuditLog) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()

		err := r.session.Query(insertAuditLog,
			gocql.UUID(e.ID), e.UserID, e.UserEmail, e.Action, e.Resource, e.ResourceID,
			e.IPAddress, e.UserAgent, e.Success, e.Status, e.Timestamp,
		).WithContext(ctx).Exec()
		if err != nil {
			r.log.Error("audit write failed", "action", e.Action, "resource_id", e.ResourceID, "err", err)
		}
	}()
}

func (r *ScyllaRecorder) Close() {
	r.wg.Wait()
}
