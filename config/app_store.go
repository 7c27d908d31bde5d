package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/internal/models"
	"github.com/akeren/cv99x-waitlist/pkg/circuitbreaker"
	"github.com/akeren/cv99x-waitlist/pkg/constants"
	"github.com/akeren/cv99x-waitlist/pkg/retry"
	"github.com/akeren/cv99x-waitlist/pkg/supabase"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
	"gorm.io/gorm"
)

const (
	SupabaseURLKey        = "SUPABASE_URL"
	SupabaseServiceKeyKey = "SUPABASE_SERVICE_ROLE_KEY"
)

// StoreConfig selects and parameterizes the backing store for waitlist entries.
type StoreConfig struct {
	Driver     string
	Table      string
	SQLitePath string

	// ConnectAttempts bounds how often a SQL store connection is tried at startup.
	ConnectAttempts int

	BreakerFailures int
	BreakerRecovery time.Duration
}

// Store holds whichever store handles were opened; exactly one of DB or Supabase is set.
type Store struct {
	Driver   string
	Table    string
	DB       *gorm.DB
	Supabase *supabase.Client
	Breaker  circuitbreaker.CircuitBreaker
}

func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:          strings.ToLower(utils.GetEnvTrimmedOrDefault("STORE_DRIVER", constants.StoreDriverSupabase)),
		Table:           utils.GetEnvTrimmedOrDefault("SUPABASE_TABLE", models.WaitlistTableName),
		SQLitePath:      utils.GetEnvTrimmedOrDefault("SQLITE_PATH", "waitlist.db"),
		ConnectAttempts: utils.GetEnvPositiveIntOrDefault("STORE_CONNECT_ATTEMPTS", 5),
		BreakerFailures: utils.GetEnvPositiveIntOrDefault("CIRCUIT_BREAKER_FAILURES", circuitbreaker.DefaultConfig().FailureThreshold),
		BreakerRecovery: utils.GetEnvDurationOrDefault("CIRCUIT_BREAKER_RECOVERY", circuitbreaker.DefaultConfig().RecoveryTimeout),
	}
}

// OpenStore connects to the configured driver. Missing Supabase credentials are an error so the
// process refuses to start rather than failing on the first submission.
func (sc *StoreConfig) OpenStore(logger *log.Logger, storeTimeout time.Duration) (*Store, error) {
	switch sc.Driver {
	case constants.StoreDriverSupabase:
		return sc.openSupabase(logger, storeTimeout)
	case constants.StoreDriverPostgres:
		db, err := ConnectWithRetry(logger, sc.ConnectAttempts, func() (*gorm.DB, error) {
			return NewDatabase(logger, &DBConfig{})
		})
		if err != nil {
			return nil, err
		}
		return &Store{Driver: sc.Driver, Table: models.WaitlistTableName, DB: db}, nil
	case constants.StoreDriverSQLite:
		db, err := NewSQLiteDatabase(logger, sc.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{Driver: sc.Driver, Table: models.WaitlistTableName, DB: db}, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (supported: %s, %s, %s)",
			sc.Driver, constants.StoreDriverSupabase, constants.StoreDriverPostgres, constants.StoreDriverSQLite)
	}
}

func (sc *StoreConfig) openSupabase(logger *log.Logger, storeTimeout time.Duration) (*Store, error) {
	values, err := RequireEnv(SupabaseURLKey, SupabaseServiceKeyKey)
	if err != nil {
		logger.Error("Supabase store is not configured", "error", err)
		return nil, err
	}

	client, err := supabase.NewClient(supabase.Config{
		URL:        values[SupabaseURLKey],
		ServiceKey: values[SupabaseServiceKeyKey],
		Timeout:    storeTimeout,
	})
	if err != nil {
		return nil, err
	}

	breakerLogger := logger.WithComponent("circuitbreaker")
	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		FailureThreshold: sc.BreakerFailures,
		RecoveryTimeout:  sc.BreakerRecovery,
		SuccessThreshold: 1,
		IsFailure:        isStoreOutage,
		OnStateChange: func(from, to circuitbreaker.CircuitState) {
			breakerLogger.Warn("Store circuit breaker changed state", "from", from.String(), "to", to.String())
		},
	})

	logger.Info("Using Supabase store", "table", sc.Table)

	return &Store{Driver: sc.Driver, Table: sc.Table, Supabase: client, Breaker: breaker}, nil
}

// ConnectWithRetry calls open until it succeeds, fails permanently or runs out of attempts.
// Only startup connections go through here; submissions are never retried.
func ConnectWithRetry(logger *log.Logger, attempts int, open func() (*gorm.DB, error)) (*gorm.DB, error) {
	var db *gorm.DB

	backoff := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: attempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("Database not reachable yet; retrying", "attempt", attempt, "delay", delay.String(), "error", err)
		},
	})

	err := backoff.Execute(context.Background(), func(context.Context) error {
		var openErr error
		db, openErr = open()
		return openErr
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// isStoreOutage ignores rejections of a particular row; only transport failures and 5xx trip the breaker.
func isStoreOutage(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.IsClientError()
	}
	return true
}

func (s *Store) IsSQL() bool {
	return s != nil && s.DB != nil
}

func (s *Store) Close(logger *log.Logger) {
	if s == nil {
		return
	}
	if s.DB != nil {
		CloseDatabase(s.DB, logger)
	}
}
