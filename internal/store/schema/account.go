package schema

import "time"

// Account represents the accounts table - the value ledger's balance record.
// Balances are stored as numeric to keep exact decimal arithmetic in the
// database; the ledger layer decodes them into decimal.Decimal. The scale
// must accommodate fractional amounts, since deposits and prices are
// arbitrary decimals - a scale-0 column would round them on write.
type Account struct {
	// Address is the account's identity
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Balance is the spendable balance
	Balance string `gorm:"column:balance;not null;type:numeric(78,18)"`
	// CreatedAt is the timestamp when the account was first funded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last balance change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}
