package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupAuditDB starts a disposable Postgres, applies migrations and returns the wrapper.
// The test is skipped when Docker is unavailable.
func setupAuditDB(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("gatehouse"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, db.Migrate(ctx))

	return db
}

func strPtr(s string) *string { return &s }

func TestAuditLogRepository_CreateAndList(t *testing.T) {
	db := setupAuditDB(t)
	repo := repositories.NewAuditLogRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.AuditLog{
		EventType:     models.AuditEventLoginFailed,
		Username:      strPtr("admin"),
		IPAddress:     strPtr("203.0.113.7"),
		Success:       false,
		FailureReason: strPtr("invalid_credentials"),
		Metadata:      models.AuditMetadata{"failure_count": 1},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, "invalid_credentials", *created.FailureReason)
	assert.Nil(t, created.SessionID)

	_, err = repo.Create(ctx, &models.AuditLog{
		EventType: models.AuditEventLoginSuccess,
		Username:  strPtr("admin"),
		SessionID: strPtr("session-abc"),
		Success:   true,
	})
	require.NoError(t, err)

	all, err := repo.ListRecent(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.AuditEventLoginSuccess, all[0].EventType)

	failed, err := repo.ListRecent(ctx, models.AuditEventLoginFailed, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.EqualValues(t, 1, failed[0].Metadata["failure_count"])
}

func TestAuditLogRepository_Cleanup(t *testing.T) {
	db := setupAuditDB(t)
	repo := repositories.NewAuditLogRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.AuditLog{EventType: models.AuditEventLogout, Success: true})
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO auth_audit_log (event_type, success, created_at)
		VALUES ($1, true, NOW() - INTERVAL '100 days')
	`, models.AuditEventLogout)
	require.NoError(t, err)

	removed, err := repo.Cleanup(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := repo.ListRecent(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
