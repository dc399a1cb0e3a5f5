package mongodb

import (
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type accountDoc struct {
	ID            string               `bson:"_id"`
	AccountNumber string               `bson:"accountNumber"`
	UserID        string               `bson:"userId"`
	AccountType   string               `bson:"accountType"`
	Balance       primitive.Decimal128 `bson:"balance"`
	CurrencyCode  string               `bson:"currencyCode"`
	Status        string               `bson:"status"`
	InterestRate  primitive.Decimal128 `bson:"interestRate"`
	LockVersion   int64                `bson:"lockVersion"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

// metadataDoc stores the money fields of the metadata as Decimal128; the rest is inlined as-is.
type metadataDoc struct {
	domain.TransactionMetadata `bson:",inline"`
	FeeAmount                  *primitive.Decimal128 `bson:"feeAmount,omitempty"`
	TotalDeduction             *primitive.Decimal128 `bson:"totalDeduction,omitempty"`
	InterestRate               *primitive.Decimal128 `bson:"interestRate,omitempty"`
	PrincipalAmount            *primitive.Decimal128 `bson:"principalAmount,omitempty"`
}

type transactionDoc struct {
	ID            string               `bson:"_id"`
	Reference     string               `bson:"reference"`
	FromAccountID *string              `bson:"fromAccountId,omitempty"`
	ToAccountID   *string              `bson:"toAccountId,omitempty"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Type          string               `bson:"type"`
	Description   string               `bson:"description"`
	Status        string               `bson:"status"`
	Metadata      metadataDoc          `bson:"metadata"`
	CreatedAt     time.Time            `bson:"createdAt"`
	ProcessedAt   *time.Time           `bson:"processedAt,omitempty"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, errors.Wrapf(err, "decimal %s out of Decimal128 range", d.String())
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid stored decimal %s", v.String())
	}
	return d, nil
}

func toDecimal128Ptr(d *decimal.Decimal) (*primitive.Decimal128, error) {
	if d == nil {
		return nil, nil
	}
	v, err := toDecimal128(*d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fromDecimal128Ptr(v *primitive.Decimal128) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := fromDecimal128(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newAccountDoc(a domain.Account) (accountDoc, error) {
	balance, err := toDecimal128(a.Balance)
	if err != nil {
		return accountDoc{}, err
	}
	rate, err := toDecimal128(a.InterestRate)
	if err != nil {
		return accountDoc{}, err
	}
	return accountDoc{
		ID:            a.AccountID,
		AccountNumber: a.AccountNumber,
		UserID:        a.UserID,
		AccountType:   string(a.AccountType),
		Balance:       balance,
		CurrencyCode:  a.CurrencyCode,
		Status:        string(a.Status),
		InterestRate:  rate,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}, nil
}

func (d accountDoc) toDomain() (domain.Account, error) {
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return domain.Account{}, err
	}
	rate, err := fromDecimal128(d.InterestRate)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		AccountID:     d.ID,
		AccountNumber: d.AccountNumber,
		UserID:        d.UserID,
		AccountType:   domain.AccountType(d.AccountType),
		Balance:       balance,
		CurrencyCode:  d.CurrencyCode,
		Status:        domain.AccountStatus(d.Status),
		InterestRate:  rate,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}

func newMetadataDoc(m domain.TransactionMetadata) (metadataDoc, error) {
	d := metadataDoc{TransactionMetadata: m}
	var err error
	if d.FeeAmount, err = toDecimal128Ptr(m.FeeAmount); err != nil {
		return d, err
	}
	if d.TotalDeduction, err = toDecimal128Ptr(m.TotalDeduction); err != nil {
		return d, err
	}
	if d.InterestRate, err = toDecimal128Ptr(m.InterestRate); err != nil {
		return d, err
	}
	if d.PrincipalAmount, err = toDecimal128Ptr(m.PrincipalAmount); err != nil {
		return d, err
	}
	return d, nil
}

func (d metadataDoc) toDomain() (domain.TransactionMetadata, error) {
	m := d.TransactionMetadata
	var err error
	if m.FeeAmount, err = fromDecimal128Ptr(d.FeeAmount); err != nil {
		return m, err
	}
	if m.TotalDeduction, err = fromDecimal128Ptr(d.TotalDeduction); err != nil {
		return m, err
	}
	if m.InterestRate, err = fromDecimal128Ptr(d.InterestRate); err != nil {
		return m, err
	}
	if m.PrincipalAmount, err = fromDecimal128Ptr(d.PrincipalAmount); err != nil {
		return m, err
	}
	return m, nil
}

func newTransactionDoc(t domain.Transaction) (transactionDoc, error) {
	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return transactionDoc{}, err
	}
	metadata, err := newMetadataDoc(t.Metadata)
	if err != nil {
		return transactionDoc{}, err
	}
	return transactionDoc{
		ID:            t.TransactionID,
		Reference:     t.Reference,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        amount,
		Type:          string(t.Type),
		Description:   t.Description,
		Status:        string(t.Status),
		Metadata:      metadata,
		CreatedAt:     t.CreatedAt,
		ProcessedAt:   t.ProcessedAt,
	}, nil
}

func (d transactionDoc) toDomain() (domain.Transaction, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}
	metadata, err := d.Metadata.toDomain()
	if err != nil {
		return domain.Transaction{}, err
	}
	var processed *time.Time
	if d.ProcessedAt != nil {
		p := d.ProcessedAt.UTC()
		processed = &p
	}
	return domain.Transaction{
		TransactionID: d.ID,
		Reference:     d.Reference,
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		Amount:        amount,
		Type:          domain.TransactionType(d.Type),
		Description:   d.Description,
		Status:        domain.TransactionStatus(d.Status),
		Metadata:      metadata,
		CreatedAt:     d.CreatedAt.UTC(),
		ProcessedAt:   processed,
	}, nil
}
