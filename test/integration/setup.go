//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
	pgstore "github.com/bagdasarian/seatkeeper/internal/repository/postgres"
	"github.com/bagdasarian/seatkeeper/internal/service"
)

func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:17.7",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	applyMigrations(t, db)

	t.Cleanup(func() {
		db.Close()
		require.NoError(t, testcontainers.TerminateContainer(postgresContainer))
	})

	return db
}

func applyMigrations(t *testing.T, db *sql.DB) {
	var migrationSQL []byte
	var err error

	paths := []string{
		filepath.Join("..", "..", "migrations", "000001_init.up.sql"),
		filepath.Join("migrations", "000001_init.up.sql"),
	}
	for _, path := range paths {
		migrationSQL, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "не удалось прочитать migrations/000001_init.up.sql")

	_, err = db.Exec(string(migrationSQL))
	require.NoError(t, err, "не удалось применить миграцию")
}

// app - сервисы поверх настоящего Postgres.
type app struct {
	db           *sql.DB
	store        repository.Store
	invites      service.InviteService
	payments     service.PaymentService
	entitlements service.EntitlementService
	accounts     service.AccountService
}

func newApp(t *testing.T, seats domain.SeatPolicy) *app {
	t.Helper()
	db := setupTestDB(t)
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	store := pgstore.NewStore(db)
	syncer := service.NewCacheSynchronizer(store, logger, nil)

	return &app{
		db:    db,
		store: store,
		invites: service.NewInviteService(store, syncer, nil, service.InviteConfig{
			TTL:     24 * time.Hour,
			BaseURL: "https://app.example.com",
		}, logger, nil),
		payments:     service.NewPaymentService(store, syncer, nil, nil, seats, logger, nil),
		entitlements: service.NewEntitlementService(store, nil),
		accounts:     service.NewAccountService(store, syncer),
	}
}

func (a *app) register(t *testing.T, id, email string) {
	t.Helper()
	_, err := a.accounts.RegisterAccount(context.Background(), id, email, "")
	require.NoError(t, err)
}

func (a *app) checkout(t *testing.T, ownerID, product, paymentID string) domain.EventOutcome {
	t.Helper()
	outcome, err := a.payments.ProcessEvent(context.Background(), checkoutEvent(ownerID, product, paymentID))
	require.NoError(t, err)
	return outcome
}

func checkoutEvent(ownerID, product, paymentID string) domain.PaymentEvent {
	return domain.PaymentEvent{
		EventID:           "evt_" + paymentID,
		Kind:              domain.PaymentEventCheckoutCompleted,
		ExternalPaymentID: paymentID,
		AccountID:         ownerID,
		Product:           product,
		OccurredAt:        time.Now(),
	}
}
