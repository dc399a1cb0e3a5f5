package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction, encoding its metadata as JSON.
func ToModelTransaction(d domain.Transaction) (models.Transaction, error) {
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to encode metadata of transaction %s: %w", d.TransactionID, err)
	}
	return models.Transaction{
		TransactionID: d.TransactionID,
		Reference:     d.Reference,
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		Amount:        d.Amount,
		Type:          string(d.Type),
		Description:   d.Description,
		Status:        string(d.Status),
		Metadata:      metadata,
		CreatedAt:     d.CreatedAt,
		ProcessedAt:   d.ProcessedAt,
	}, nil
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) (domain.Transaction, error) {
	var metadata domain.TransactionMetadata
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return domain.Transaction{}, fmt.Errorf("failed to decode metadata of transaction %s: %w", m.TransactionID, err)
		}
	}
	return domain.Transaction{
		TransactionID: m.TransactionID,
		Reference:     m.Reference,
		FromAccountID: m.FromAccountID,
		ToAccountID:   m.ToAccountID,
		Amount:        m.Amount,
		Type:          domain.TransactionType(m.Type),
		Description:   m.Description,
		Status:        domain.TransactionStatus(m.Status),
		Metadata:      metadata,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
	}, nil
}

// ToDomainTransactionSlice converts model rows to domain entries, stopping at the first undecodable row.
func ToDomainTransactionSlice(ms []models.Transaction) ([]domain.Transaction, error) {
	ds := make([]domain.Transaction, 0, len(ms))
	for _, m := range ms {
		d, err := ToDomainTransaction(m)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}
