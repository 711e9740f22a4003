package ledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var dsn string
	var err error

	if dbHost := os.Getenv("TEST_DB_HOST"); dbHost != "" {
		dbPort := os.Getenv("TEST_DB_PORT")
		if dbPort == "" {
			dbPort = "5432"
		}
		dsn = fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=test_db sslmode=disable",
			dbHost, dbPort)
	} else {
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			_ = pgContainer.Terminate(ctx)
			os.Exit(1)
		}
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	if err := store.Migrate(testDB); err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	code := m.Run()

	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
		}
	}

	os.Exit(code)
}

// initLedgers returns both ledgers on a rolled-back transaction for isolation
func initLedgers(t *testing.T) (ValueLedger, AssetLedger) {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGValueLedger(tx), NewPGAssetLedger(tx)
}

func TestValueLedger_BalanceOfUnknownAccount(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	balance, err := funds.BalanceOf(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestValueLedger_Deposit(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(100)))

	balance, err := funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))

	// Deposits accumulate
	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(50)))
	balance, err = funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))
}

func TestValueLedger_FractionalAmountsSurviveRoundTrip(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	// Fractional amounts must come back exactly as written; a balance
	// column with integer scale would round them on persist.
	deposit := decimal.RequireFromString("10.5")
	require.NoError(t, funds.Deposit(ctx, "alice", deposit))

	balance, err := funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(deposit), "got %s", balance)

	price := decimal.RequireFromString("3.25")
	require.NoError(t, funds.Transfer(ctx, "alice", "bob", price))

	balance, err = funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("7.25")), "got %s", balance)

	balance, err = funds.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, balance.Equal(price), "got %s", balance)
}

func TestValueLedger_DepositNegative(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	err := funds.Deposit(ctx, "alice", decimal.NewFromInt(-1))
	require.Error(t, err)
}

func TestValueLedger_TransferMissingPayer(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	err := funds.Transfer(ctx, "ghost", "bob", decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestValueLedger_TransferInsufficientFunds(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(5)))
	require.NoError(t, funds.Deposit(ctx, "bob", decimal.NewFromInt(1)))

	err := funds.Transfer(ctx, "alice", "bob", decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing moved
	balance, err := funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5)))
	balance, err = funds.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1)))
}

func TestValueLedger_TransferDrainsToZero(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(25)))

	// Paying the exact balance is allowed
	require.NoError(t, funds.Transfer(ctx, "alice", "bob", decimal.NewFromInt(25)))

	balance, err := funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	balance, err = funds.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(25)))
}

func TestValueLedger_TransferCreatesPayee(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(40)))
	require.NoError(t, funds.Transfer(ctx, "alice", "newcomer", decimal.NewFromInt(15)))

	balance, err := funds.BalanceOf(ctx, "newcomer")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(15)))
}

func TestValueLedger_TransferToSelf(t *testing.T) {
	funds, _ := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, funds.Deposit(ctx, "alice", decimal.NewFromInt(10)))
	require.NoError(t, funds.Transfer(ctx, "alice", "alice", decimal.NewFromInt(7)))

	balance, err := funds.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10)))
}

func TestAssetLedger_MintAndOwnerOf(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, assets.CreateClass(ctx, 1, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 0, "admin"))

	owner, err := assets.OwnerOf(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("admin"), owner)
}

func TestAssetLedger_OwnerOfNeverIssued(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	_, err := assets.OwnerOf(ctx, 1, 42)
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)
}

func TestAssetLedger_Transfer(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, assets.CreateClass(ctx, 1, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 3, "admin"))

	require.NoError(t, assets.Transfer(ctx, 1, 3, "admin", "alice"))

	owner, err := assets.OwnerOf(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("alice"), owner)
}

func TestAssetLedger_TransferWrongOwner(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, assets.CreateClass(ctx, 1, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 3, "admin"))

	err := assets.Transfer(ctx, 1, 3, "mallory", "alice")
	require.ErrorIs(t, err, domain.ErrMustBeCardOwner)

	// Ownership unchanged
	owner, err := assets.OwnerOf(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("admin"), owner)
}

func TestAssetLedger_TransferNeverIssued(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	err := assets.Transfer(ctx, 9, 9, "admin", "alice")
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)
}

func TestAssetLedger_CardsOwnedBy(t *testing.T) {
	_, assets := initLedgers(t)
	ctx := context.Background()

	require.NoError(t, assets.CreateClass(ctx, 1, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 0, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 1, "admin"))
	require.NoError(t, assets.MintInstance(ctx, 1, 2, "alice"))

	owned, err := assets.CardsOwnedBy(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, uint32(0), owned[0].InstanceID)
	assert.Equal(t, uint32(1), owned[1].InstanceID)

	owned, err = assets.CardsOwnedBy(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint32(2), owned[0].InstanceID)

	owned, err = assets.CardsOwnedBy(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, owned)
}
