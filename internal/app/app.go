// Package app wires configuration, stores and use cases shared by the binaries.
package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simaogato/recurring-ledger/internal/adapter/repository/memory"
	"github.com/simaogato/recurring-ledger/internal/adapter/repository/sqlstore"
	"github.com/simaogato/recurring-ledger/internal/config"
	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
	"github.com/simaogato/recurring-ledger/internal/usecase/budget"
	"github.com/simaogato/recurring-ledger/internal/usecase/classifier"
	"github.com/simaogato/recurring-ledger/internal/usecase/dashboard"
	"github.com/simaogato/recurring-ledger/internal/usecase/execution"
	"github.com/simaogato/recurring-ledger/internal/usecase/reconciliation"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Stores holds the repositories of the configured driver
type Stores struct {
	Series       domain.SeriesRepository
	Transactions domain.TransactionRepository
	Periods      domain.BudgetPeriodRepository

	db *sqlstore.DB
}

// OpenStores opens the configured store. SQL drivers get their migrations applied first.
func OpenStores(cfg *config.Config, logger logrus.FieldLogger) (*Stores, error) {
	logger = logging.OrDiscard(logger)

	if cfg.DBDriver == config.DriverMemory {
		store := memory.NewStore()
		logger.Warn("App.Store.Memory: records are lost on exit")
		return &Stores{Series: store, Transactions: store, Periods: store}, nil
	}

	db, err := connect(cfg.DBDriver, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}

	version, err := sqlstore.RunMigrations(cfg.DBDriver, cfg.DSN())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.WithFields(logrus.Fields{"driver": cfg.DBDriver, "schema_version": version}).Info("App.Store.Ready")

	return &Stores{
		Series:       sqlstore.NewSeriesRepository(db),
		Transactions: sqlstore.NewTransactionRepository(db),
		Periods:      sqlstore.NewBudgetPeriodRepository(db),
		db:           db,
	}, nil
}

// connect retries while the database container is still starting
func connect(driver, dsn string, logger logrus.FieldLogger) (*sqlstore.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sqlstore.NewDB(driver, dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if driver != sqlstore.DriverPostgres {
			break
		}
		logger.WithError(err).WithField("attempt", attempt).Warn("App.Store.ConnectRetry")
		time.Sleep(connectBackoff)
	}
	return nil, fmt.Errorf("failed to connect to database: %w", lastErr)
}

// Close releases the database connection, if any
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Services bundles the use cases exposed by the binaries
type Services struct {
	Dashboard *dashboard.DashboardService
	Engine    *execution.Engine
	Links     *reconciliation.LinkService
	Periods   *budget.PeriodService
}

// Window returns the classification window from the configuration
func Window(cfg *config.Config) classifier.Window {
	maxDaysOverdue := cfg.MaxDaysOverdue
	return classifier.Window{
		LookaheadDays:  cfg.LookaheadDays,
		MaxDaysOverdue: &maxDaysOverdue,
	}
}

// NewServices creates the use cases over stores
func NewServices(cfg *config.Config, stores *Stores, clock domain.Clock, logger logrus.FieldLogger) *Services {
	engine := execution.NewEngine(stores.Series, stores.Transactions, clock, logger)
	if cfg.ExecutionWorkers > 0 {
		engine.Workers = cfg.ExecutionWorkers
	}

	return &Services{
		Dashboard: dashboard.NewDashboardService(stores.Series, clock, Window(cfg)),
		Engine:    engine,
		Links:     reconciliation.NewLinkService(stores.Transactions, logger),
		Periods:   budget.NewPeriodService(stores.Periods, stores.Transactions, logger),
	}
}
