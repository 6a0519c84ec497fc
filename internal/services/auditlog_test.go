package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loxodon/internal/store"
)

func TestCreateAuditLogRequiresActor(t *testing.T) {
	mem := store.NewMemory()
	svc := NewAuditLogService(mem, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateAuditLogInput{
		TenantID: "T1", UserID: "ghost", Action: "users.update", Description: "x",
	})
	assert.ErrorIs(t, err, ErrActorNotFound)

	seedUser(t, mem, "u1", "T1")
	l, err := svc.Create(ctx, CreateAuditLogInput{
		TenantID: "T1", UserID: "u1", Action: "users.update", Description: "changed role",
	})
	require.NoError(t, err)
	assert.NotZero(t, l.ID)
	assert.False(t, l.CreatedAt.IsZero())
}

func TestRecordSwallowsFailures(t *testing.T) {
	mem := store.NewMemory()
	svc := NewAuditLogService(mem, zap.NewNop().Sugar())
	ctx := context.Background()

	// Missing actor and empty actor are both silent no-ops.
	svc.Record(ctx, "T1", "ghost", "users.update", "x")
	svc.Record(ctx, "T1", "", "users.update", "x")
	logs, total, err := mem.ListAuditLogs(ctx, store.AuditLogFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, logs)

	seedUser(t, mem, "u1", "T1")
	svc.Record(ctx, "T1", "u1", "users.update", "changed role")
	_, total, err = mem.ListAuditLogs(ctx, store.AuditLogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
