package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

type pgValueLedger struct {
	db *gorm.DB
}

// NewPGValueLedger creates a Postgres-backed value ledger. Operations join
// the ambient store transaction when one is open on the context.
func NewPGValueLedger(db *gorm.DB) ValueLedger {
	return &pgValueLedger{db: db}
}

func (l *pgValueLedger) conn(ctx context.Context) *gorm.DB {
	return store.Conn(ctx, l.db)
}

// account reads an account row locked for update; ok=false when absent
func (l *pgValueLedger) account(ctx context.Context, address domain.Account) (*schema.Account, bool, error) {
	var record schema.Account
	err := l.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", string(address)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &record, true, nil
}

func (l *pgValueLedger) BalanceOf(ctx context.Context, address domain.Account) (decimal.Decimal, error) {
	var record schema.Account
	err := l.conn(ctx).Where("address = ?", string(address)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	balance, err := decimal.NewFromString(record.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance of %s: %w", address, err)
	}
	return balance, nil
}

func (l *pgValueLedger) Deposit(ctx context.Context, address domain.Account, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("deposit amount must not be negative")
	}

	return store.NewPGStore(l.db).Transact(ctx, func(ctx context.Context) error {
		record, ok, err := l.account(ctx, address)
		if err != nil {
			return err
		}
		if !ok {
			create := schema.Account{
				Address: string(address),
				Balance: amount.String(),
			}
			if err := l.conn(ctx).Create(&create).Error; err != nil {
				return fmt.Errorf("failed to create account %s: %w", address, err)
			}
			return nil
		}

		balance, err := decimal.NewFromString(record.Balance)
		if err != nil {
			return fmt.Errorf("failed to parse balance of %s: %w", address, err)
		}
		return l.writeBalance(ctx, address, balance.Add(amount))
	})
}

// Transfer debits from and credits to in one transaction. Both rows are
// locked for update so concurrent settlements against the same accounts
// serialize instead of double-spending.
func (l *pgValueLedger) Transfer(ctx context.Context, from, to domain.Account, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer amount must not be negative")
	}
	if from == to {
		return nil
	}

	return store.NewPGStore(l.db).Transact(ctx, func(ctx context.Context) error {
		payer, ok, err := l.account(ctx, from)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccountNotFound
		}

		payerBalance, err := decimal.NewFromString(payer.Balance)
		if err != nil {
			return fmt.Errorf("failed to parse balance of %s: %w", from, err)
		}
		if payerBalance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		payee, ok, err := l.account(ctx, to)
		if err != nil {
			return err
		}
		payeeBalance := decimal.Zero
		if ok {
			payeeBalance, err = decimal.NewFromString(payee.Balance)
			if err != nil {
				return fmt.Errorf("failed to parse balance of %s: %w", to, err)
			}
		} else {
			create := schema.Account{
				Address: string(to),
				Balance: decimal.Zero.String(),
			}
			if err := l.conn(ctx).Create(&create).Error; err != nil {
				return fmt.Errorf("failed to create account %s: %w", to, err)
			}
		}

		if err := l.writeBalance(ctx, from, payerBalance.Sub(amount)); err != nil {
			return err
		}
		return l.writeBalance(ctx, to, payeeBalance.Add(amount))
	})
}

func (l *pgValueLedger) writeBalance(ctx context.Context, address domain.Account, balance decimal.Decimal) error {
	result := l.conn(ctx).
		Model(&schema.Account{}).
		Where("address = ?", string(address)).
		Updates(map[string]interface{}{"balance": balance.String(), "updated_at": gorm.Expr("now()")})
	if result.Error != nil {
		return fmt.Errorf("failed to update balance of %s: %w", address, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
