package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/core/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/platform/config"
	"github.com/SscSPs/bank_ledger/internal/platform/storage"
	"github.com/SscSPs/bank_ledger/internal/utils"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const (
	fThreads  = "threads"
	fOps      = "ops"
	fAccounts = "accounts"
	fFunding  = "funding"
	fMaxMove  = "max-amount"
)

const actor = "ledgerctl"

// Options shape one stress run.
type Options struct {
	Threads   int
	Ops       int // transfers per thread
	Accounts  int
	Funding   decimal.Decimal // initial deposit per account
	MaxAmount int64           // transfers move 1..MaxAmount whole units
}

// Report summarises a run. Conserved holds when the final balances plus every
// fee charged equal the money deposited.
type Report struct {
	Succeeded int
	Rejected  int
	Deposited decimal.Decimal
	Fees      decimal.Decimal
	Final     decimal.Decimal
	Conserved bool
}

type stressCommand struct{}

// New returns the command running concurrent transfers against the configured store.
func New() *cli.Command {
	c := new(stressCommand)

	return &cli.Command{
		Name:        "stress",
		Usage:       "run concurrent transfers and verify conservation",
		Description: "opens accounts, funds them, runs random transfers between them from many goroutines and checks that no money was created or lost",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: fThreads, Value: 16, Aliases: []string{"t"}, EnvVars: []string{"THREADS"}},
			&cli.IntFlag{Name: fOps, Value: 200, Aliases: []string{"n"}},
			&cli.IntFlag{Name: fAccounts, Value: 10, Aliases: []string{"a"}},
			&cli.StringFlag{Name: fFunding, Value: "1000"},
			&cli.Int64Flag{Name: fMaxMove, Value: 150},
		},
		Action: c.Action,
	}
}

func (s *stressCommand) Action(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	funding, err := decimal.NewFromString(c.String(fFunding))
	if err != nil {
		return pkgerrors.Wrap(err, "invalid funding")
	}

	repos, closeStore, err := storage.Open(c.Context, cfg, false)
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	defer closeStore()

	container := services.NewServiceContainer(repos, cfg.Policy(), nil, nil)
	report, err := Run(c.Context, container, Options{
		Threads:   c.Int(fThreads),
		Ops:       c.Int(fOps),
		Accounts:  c.Int(fAccounts),
		Funding:   funding,
		MaxAmount: c.Int64(fMaxMove),
	})
	if err != nil {
		return err
	}

	slog.Info("Stress run finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("rejected", report.Rejected),
		slog.String("deposited", utils.FormatMoney(report.Deposited)),
		slog.String("fees", utils.FormatMoney(report.Fees)),
		slog.String("final", utils.FormatMoney(report.Final)),
		slog.Bool("conserved", report.Conserved))
	if !report.Conserved {
		return fmt.Errorf("conservation violated: deposited %s, final %s, fees %s", report.Deposited, report.Final, report.Fees)
	}
	return nil
}

// Run opens and funds fresh accounts, then fires random transfers between them.
// Insufficient funds rejections are expected and counted; any other error aborts.
func Run(ctx context.Context, svc *portssvc.ServiceContainer, opts Options) (*Report, error) {
	if opts.Accounts < 2 {
		return nil, fmt.Errorf("%w: need at least two accounts", apperrors.ErrValidation)
	}
	if opts.MaxAmount < 1 {
		return nil, fmt.Errorf("%w: max amount must be positive", apperrors.ErrValidation)
	}

	ids := make([]string, opts.Accounts)
	report := &Report{Deposited: decimal.Zero, Fees: decimal.Zero, Final: decimal.Zero}
	for i := range ids {
		acc, err := svc.Account.OpenAccount(ctx, dto.CreateAccountRequest{AccountType: domain.Checking, CurrencyCode: "USD", UserID: actor}, actor)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "open account")
		}
		if _, err := svc.Ledger.Deposit(ctx, acc.AccountID, opts.Funding, "stress funding", domain.TransactionMetadata{Initiator: actor}); err != nil {
			return nil, pkgerrors.Wrap(err, "fund account")
		}
		ids[i] = acc.AccountID
		report.Deposited = report.Deposited.Add(opts.Funding)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < opts.Threads; t++ {
		g.Go(func() error {
			for n := 0; n < opts.Ops; n++ {
				from := rand.Intn(len(ids))
				to := (from + 1 + rand.Intn(len(ids)-1)) % len(ids)
				amount := decimal.NewFromInt(1 + rand.Int63n(opts.MaxAmount))

				res, err := svc.Ledger.Transfer(gctx, ids[from], ids[to], amount, "stress", domain.TransactionMetadata{Initiator: actor})
				mu.Lock()
				switch {
				case err == nil:
					report.Succeeded++
					if res.Fee != nil {
						report.Fees = report.Fees.Add(*res.Fee)
					}
				case errors.Is(err, apperrors.ErrInsufficientFunds):
					report.Rejected++
				default:
					mu.Unlock()
					return pkgerrors.Wrapf(err, "transfer %s -> %s", ids[from], ids[to])
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		acc, err := svc.Account.GetAccountByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "read final balance")
		}
		report.Final = report.Final.Add(acc.Balance)
	}
	report.Conserved = report.Final.Add(report.Fees).Equal(report.Deposited)
	return report, nil
}
