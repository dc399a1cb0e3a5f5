package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/utils"
)

// ReversalTag prefixes reference codes of reversal entries.
const ReversalTag = "REV"

// ReferenceGenerator issues ledger reference codes of the form <TAG><unix millis><3 digits>.
// The trailing digits cycle through a per-process sequence starting at a random offset,
// so codes from one process never repeat unless it issues over 1000 per millisecond.
type ReferenceGenerator struct {
	seq uint32
	now func() time.Time
}

// NewReferenceGenerator creates a generator seeded with a random sequence start.
func NewReferenceGenerator(now func() time.Time) *ReferenceGenerator {
	g := &ReferenceGenerator{now: now}
	if g.now == nil {
		g.now = time.Now
	}
	if digits, err := utils.GenerateRandomDigits(3); err == nil {
		if start, err := strconv.Atoi(digits); err == nil {
			g.seq = uint32(start)
		}
	}
	return g
}

// Next returns a new reference code for the given tag.
func (g *ReferenceGenerator) Next(tag string) string {
	n := atomic.AddUint32(&g.seq, 1) % 1000
	return fmt.Sprintf("%s%d%03d", tag, g.now().UnixMilli(), n)
}

const accountNumberAttempts = 5

// generateAccountNumber returns an unused account number for the given type:
// the type prefix followed by nine random digits.
func generateAccountNumber(ctx context.Context, reader portsrepo.AccountReader, accountType domain.AccountType) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		digits, err := utils.GenerateRandomDigits(9)
		if err != nil {
			return "", err
		}
		number := accountType.AccountNumberPrefix() + digits
		_, err = reader.FindAccountByNumber(ctx, number)
		if errors.Is(err, apperrors.ErrNotFound) {
			return number, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique account number", apperrors.ErrDuplicate)
}
