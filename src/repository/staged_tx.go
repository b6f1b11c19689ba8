package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type holdingKey struct {
	userID     string
	securityID string
}

type stagedOp func(ctx context.Context, repo *GormLedgerRepository) error

// stagedTx records writes in order and overlays them on reads from base.
type stagedTx struct {
	base *GormLedgerRepository

	accounts map[string]*model.Account
	holdings map[holdingKey]*model.Holding // nil value marks a deletion
	resets   map[string]bool

	ops []stagedOp
}

func newStagedTx(base *GormLedgerRepository) *stagedTx {
	return &stagedTx{
		base:     base,
		accounts: make(map[string]*model.Account),
		holdings: make(map[holdingKey]*model.Holding),
		resets:   make(map[string]bool),
	}
}

func (t *stagedTx) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	if acc, ok := t.accounts[userID]; ok {
		cp := *acc
		return &cp, nil
	}
	return t.base.GetAccount(ctx, userID)
}

func (t *stagedTx) SaveAccount(_ context.Context, account *model.Account) error {
	cp := *account
	t.accounts[account.UserID] = &cp
	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		return repo.SaveAccount(ctx, &cp)
	})
	return nil
}

func (t *stagedTx) CreateAccount(ctx context.Context, account *model.Account) (bool, error) {
	existing, err := t.GetAccount(ctx, account.UserID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	cp := *account
	t.accounts[account.UserID] = &cp
	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		_, err := repo.CreateAccount(ctx, &cp)
		return err
	})
	return true, nil
}

func (t *stagedTx) GetHolding(ctx context.Context, userID, securityID string) (*model.Holding, error) {
	if h, ok := t.holdings[holdingKey{userID, securityID}]; ok {
		if h == nil {
			return nil, nil
		}
		cp := *h
		return &cp, nil
	}
	if t.resets[userID] {
		return nil, nil
	}
	return t.base.GetHolding(ctx, userID, securityID)
}

func (t *stagedTx) ListHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	merged := make(map[string]model.Holding)

	if !t.resets[userID] {
		persisted, err := t.base.ListHoldings(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, h := range persisted {
			merged[h.SecurityID] = h
		}
	}

	for key, h := range t.holdings {
		if key.userID != userID {
			continue
		}
		if h == nil {
			delete(merged, key.securityID)
			continue
		}
		merged[key.securityID] = *h
	}

	out := make([]model.Holding, 0, len(merged))
	for _, h := range merged {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SecurityID < out[j].SecurityID })

	return out, nil
}

func (t *stagedTx) SaveHolding(_ context.Context, holding *model.Holding) error {
	if holding.Quantity <= 0 {
		return fmt.Errorf("holding %s/%s: quantity must be positive, got %d", holding.UserID, holding.SecurityID, holding.Quantity)
	}
	if holding.ProductType == "" {
		holding.ProductType = model.ProductTypeCNC
	}

	cp := *holding
	t.holdings[holdingKey{holding.UserID, holding.SecurityID}] = &cp
	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		return repo.SaveHolding(ctx, &cp)
	})
	return nil
}

func (t *stagedTx) DeleteHolding(_ context.Context, userID, securityID string) error {
	t.holdings[holdingKey{userID, securityID}] = nil
	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		return repo.DeleteHolding(ctx, userID, securityID)
	})
	return nil
}

func (t *stagedTx) ResetHoldings(ctx context.Context, userID string, cash decimal.Decimal) error {
	acc, err := t.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	if acc == nil {
		return ledgererr.InvalidInput("account %s not found", userID)
	}

	acc.Cash = cash
	t.accounts[userID] = acc
	t.resets[userID] = true
	for key := range t.holdings {
		if key.userID == userID {
			delete(t.holdings, key)
		}
	}

	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		return repo.ResetHoldings(ctx, userID, cash)
	})
	return nil
}

func (t *stagedTx) AppendHistory(_ context.Context, entry *model.HistoryEntry) error {
	if entry.TradeID == "" {
		entry.TradeID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	t.ops = append(t.ops, func(ctx context.Context, repo *GormLedgerRepository) error {
		return repo.AppendHistory(ctx, entry)
	})
	return nil
}

// flush replays the write log in a single SQLite transaction.
func (t *stagedTx) flush(ctx context.Context) error {
	if len(t.ops) == 0 {
		return nil
	}

	return t.base.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := &GormLedgerRepository{db: tx}
		for _, op := range t.ops {
			if err := op(ctx, repo); err != nil {
				return err
			}
		}
		return nil
	})
}
