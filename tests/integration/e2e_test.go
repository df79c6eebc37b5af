//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/recurring-ledger/internal/adapter/grpc"
	"github.com/simaogato/recurring-ledger/internal/adapter/repository/sqlstore"
	"github.com/simaogato/recurring-ledger/internal/config"
	"github.com/simaogato/recurring-ledger/internal/domain"
)

var (
	db         *sqlstore.DB
	grpcClient *grpcadapter.Client
	grpcConn   *grpc.ClientConn
)

// TestMain connects to the database the server under test uses and to the server itself
func TestMain(m *testing.M) {
	cfg := config.FromEnv()

	// 1. Connect to Database (schema is migrated by the server, migrating again is a no-op)
	if _, err := sqlstore.RunMigrations(sqlstore.DriverPostgres, cfg.DBConnStr); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}
	var err error
	db, err = sqlstore.NewDB(sqlstore.DriverPostgres, cfg.DBConnStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	grpcClient = grpcadapter.NewClient(grpcConn)

	code := m.Run()

	grpcConn.Close()
	db.Close()
	os.Exit(code)
}

// getAuthContext returns a context with authorization metadata
func getAuthContext() context.Context {
	token := os.Getenv("API_TOKEN")
	if token == "" {
		token = "dev-token"
	}
	md := metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	})
	return metadata.NewOutgoingContext(context.Background(), md)
}

// getGRPCAddress returns the gRPC server address from environment or defaults
func getGRPCAddress() string {
	addr := os.Getenv("GRPC_ADDRESS")
	if addr == "" {
		addr = "localhost:8080"
	}
	return addr
}

func today() time.Time {
	return domain.DateOf(time.Now())
}

// seedSeries stores a monthly series for a fresh owner directly in the database
func seedSeries(t *testing.T, owner uuid.UUID, name string, kind domain.CashFlowKind, amount string, dueOffset int) *domain.RecurringSeries {
	t.Helper()
	s := &domain.RecurringSeries{
		ID:        uuid.New(),
		OwnerID:   owner,
		Name:      name,
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		Category:  "housing",
		Frequency: domain.FrequencyMonthly,
		AccountID: uuid.New(),
		StartDate: today().AddDate(0, -2, 0),
		DueDate:   today().AddDate(0, 0, dueOffset),
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, sqlstore.NewSeriesRepository(db).CreateSeries(context.Background(), s))
	return s
}

func seedTransaction(t *testing.T, owner uuid.UUID, kind domain.CashFlowKind, amount, category string) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		ID:        uuid.New(),
		OwnerID:   owner,
		AccountID: uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		Category:  category,
		Date:      today().AddDate(0, 0, -1),
		CreatedAt: time.Now(),
	}
	require.NoError(t, sqlstore.NewTransactionRepository(db).CreateTransaction(context.Background(), tx))
	return tx
}

func field(resp *structpb.Struct, key string) interface{} {
	return resp.AsMap()[key]
}

// TestEndToEndFlow tests the complete flow: Dashboard -> DryRun -> Execute -> Rerun
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()
	owner := uuid.New()
	rent := seedSeries(t, owner, "Rent", domain.KindExpense, "1200.00", -1)
	seedSeries(t, owner, "Salary", domain.KindIncome, "3000.00", 3)

	// 1. Dashboard
	dashboard, err := grpcClient.Call(ctx, grpcadapter.MethodGetDashboard, map[string]any{"owner_id": owner.String()})
	require.NoError(t, err, "GetDashboard should succeed")
	assert.Len(t, field(dashboard, "active_series"), 2)
	assert.Len(t, field(dashboard, "overdue"), 1)
	impact := field(dashboard, "monthly_impact").(map[string]interface{})
	assert.Equal(t, "1800.00", impact["net"])

	// 2. Dry run writes nothing
	dry, err := grpcClient.Call(ctx, grpcadapter.MethodRunDueSeries, map[string]any{"owner_id": owner.String(), "dry_run": true})
	require.NoError(t, err, "RunDueSeries dry run should succeed")
	assert.Equal(t, float64(1), field(dry, "total_processed"))
	assert.Equal(t, "-1200.00", field(dry, "total_amount"))

	stored, err := sqlstore.NewSeriesRepository(db).GetSeries(context.Background(), rent.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalExecutions, "dry run must not touch the series")

	// 3. Execute persists the transaction and advances the series
	executed, err := grpcClient.Call(ctx, grpcadapter.MethodRunDueSeries, map[string]any{"owner_id": owner.String()})
	require.NoError(t, err, "RunDueSeries should succeed")
	assert.Equal(t, float64(1), field(executed, "successful_executions"))

	stored, err = sqlstore.NewSeriesRepository(db).GetSeries(context.Background(), rent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalExecutions)
	assert.True(t, stored.DueDate.After(today()), "due date should move past today")
	require.Len(t, stored.TransactionIDs, 1)

	tx, err := sqlstore.NewTransactionRepository(db).GetTransaction(context.Background(), stored.TransactionIDs[0])
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(-1200)))
	require.NotNil(t, tx.SeriesID)
	assert.Equal(t, rent.ID, *tx.SeriesID)

	// 4. Rerun skips the executed series
	rerun, err := grpcClient.Call(ctx, grpcadapter.MethodRunDueSeries, map[string]any{"owner_id": owner.String()})
	require.NoError(t, err)
	assert.Equal(t, float64(0), field(rerun, "total_processed"))
}

// TestReconciliationFlow links an expense to its refund and unlinks it again
func TestReconciliationFlow(t *testing.T) {
	ctx := getAuthContext()
	owner := uuid.New()
	expense := seedTransaction(t, owner, domain.KindExpense, "-80.00", "groceries")
	refund := seedTransaction(t, owner, domain.KindIncome, "30.00", "groceries")

	linked, err := grpcClient.Call(ctx, grpcadapter.MethodLinkTransactions, map[string]any{
		"a_id": expense.ID.String(),
		"b_id": refund.ID.String(),
	})
	require.NoError(t, err, "LinkTransactions should succeed")
	parent := field(linked, "parent").(map[string]interface{})
	assert.Equal(t, expense.ID.String(), parent["id"])

	repo := sqlstore.NewTransactionRepository(db)
	storedRefund, err := repo.GetTransaction(context.Background(), refund.ID)
	require.NoError(t, err)
	assert.True(t, storedRefund.IsReconciled)
	require.NotNil(t, storedRefund.CounterpartID)
	assert.Equal(t, expense.ID, *storedRefund.CounterpartID)

	unlinked, err := grpcClient.Call(ctx, grpcadapter.MethodUnlinkTransaction, map[string]any{"transaction_id": refund.ID.String()})
	require.NoError(t, err, "UnlinkTransaction should succeed")
	assert.Equal(t, true, field(unlinked, "counterpart_closed"))

	storedExpense, err := repo.GetTransaction(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.False(t, storedExpense.IsReconciled)
	assert.Nil(t, storedExpense.CounterpartID)
}

// TestBudgetPeriodFlow opens and closes a budget period over seeded expenses
func TestBudgetPeriodFlow(t *testing.T) {
	ctx := getAuthContext()
	owner := uuid.New()
	seedTransaction(t, owner, domain.KindExpense, "-120.00", "groceries")
	seedTransaction(t, owner, domain.KindExpense, "-40.00", "fuel")

	_, err := grpcClient.Call(ctx, grpcadapter.MethodStartBudgetPeriod, map[string]any{
		"owner_id":   owner.String(),
		"amount":     "500.00",
		"categories": []any{"groceries"},
		"start_date": today().AddDate(0, 0, -7).Format(time.DateOnly),
	})
	require.NoError(t, err, "StartBudgetPeriod should succeed")

	closed, err := grpcClient.Call(ctx, grpcadapter.MethodCloseBudgetPeriod, map[string]any{"owner_id": owner.String()})
	require.NoError(t, err, "CloseBudgetPeriod should succeed")
	period := field(closed, "period").(map[string]interface{})
	assert.Equal(t, "120.00", period["total_spent"])
	assert.Equal(t, "380.00", period["total_saved"])
	assert.Equal(t, false, period["is_active"])
}

func TestNegativeScenarios(t *testing.T) {
	ctx := getAuthContext()

	// 1. Missing token
	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := grpcClient.Call(context.Background(), grpcadapter.MethodGetDashboard, map[string]any{"owner_id": uuid.NewString()})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	// 2. Non-existent transaction
	t.Run("NonExistentTransaction", func(t *testing.T) {
		_, err := grpcClient.Call(ctx, grpcadapter.MethodUnlinkTransaction, map[string]any{"transaction_id": uuid.NewString()})
		require.Error(t, err)
		assert.Equal(t, codes.NotFound, status.Code(err), "Error code should be NotFound")
	})

	// 3. Malformed UUID
	t.Run("MalformedUUID", func(t *testing.T) {
		_, err := grpcClient.Call(ctx, grpcadapter.MethodGetDashboard, map[string]any{"owner_id": "not-a-uuid"})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "Error code should be InvalidArgument")
	})

	// 4. Closing without an active period
	t.Run("NoActivePeriod", func(t *testing.T) {
		_, err := grpcClient.Call(ctx, grpcadapter.MethodCloseBudgetPeriod, map[string]any{"owner_id": uuid.NewString()})
		require.Error(t, err)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})
}
