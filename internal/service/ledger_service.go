// Package service orchestrates the ledger: it loads events from storage,
// runs the calculator and persists settlements.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/ledgerwise/internal/calculator"
	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/lock"
	"github.com/mmynk/ledgerwise/internal/metrics"
	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/rates"
	"github.com/mmynk/ledgerwise/internal/storage"
)

var tracer = otel.Tracer("service")

// ErrInvalidArgument is wrapped by every input validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// PartialSettlementError reports that a settlement's transfers could not be
// written. The batch is atomic, so none of them were recorded.
type PartialSettlementError struct {
	GroupID   string
	GuestID   string
	Attempted int
	Err       error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("settlement of guest %s in group %s failed, %d transfers not recorded: %v",
		e.GuestID, e.GroupID, e.Attempted, e.Err)
}

func (e *PartialSettlementError) Unwrap() error {
	return e.Err
}

// LedgerService implements the ledger operations on top of a Store.
type LedgerService struct {
	store           storage.Store
	rates           rates.Provider
	locks           *lock.Keyed
	metrics         *metrics.Metrics
	defaultCurrency models.Currency
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store storage.Store, provider rates.Provider, m *metrics.Metrics, defaultCurrency models.Currency) *LedgerService {
	return &LedgerService{
		store:           store,
		rates:           provider,
		locks:           lock.NewKeyed(),
		metrics:         m,
		defaultCurrency: defaultCurrency,
	}
}

// GroupBalances is the balance sheet of a group.
type GroupBalances struct {
	Group      *models.Group
	Currencies []calculator.CurrencyBalances
}

// GroupBalances computes member balances and the debts that settle a group.
// Debt amounts are rounded to each currency's minor unit.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID string) (*GroupBalances, error) {
	slog.Info("GroupBalances request received", "group_id", groupID)
	defer s.observe("group_balances", time.Now())

	if groupID == "" {
		return nil, invalidf("group_id required")
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("GroupBalances failed - group not found", "group_id", groupID, "error", err)
		return nil, err
	}

	expenses, transfers, err := s.store.GetEventsByGroup(ctx, groupID)
	if err != nil {
		slog.Error("GroupBalances failed - could not load events", "group_id", groupID, "error", err)
		return nil, err
	}

	balances := calculator.CalculateGroupBalances(expenses, transfers)
	for i := range balances {
		cb := &balances[i]
		for j := range cb.Debts {
			cb.Debts[j] = cb.Debts[j].Rounded()
		}
		s.metrics.AddDebts(cb.Currency, len(cb.Debts))
	}

	slog.Info("GroupBalances successful",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"transfers_count", len(transfers),
		"currencies_count", len(balances),
	)

	return &GroupBalances{Group: group, Currencies: balances}, nil
}

// SettlementResult lists the transfers a settlement recorded.
type SettlementResult struct {
	GroupID   string
	GuestID   string
	Transfers []models.Transfer
}

// SettleGuest records transfers that pay off everything the guest owes in the group.
//
// The whole group is aggregated and reduced so the guest's creditors are
// known; only debts with the guest as debtor are settled. The transfers are
// written in one atomic batch. Settlements of the same group are serialized.
func (s *LedgerService) SettleGuest(ctx context.Context, groupID, guestID string) (*SettlementResult, error) {
	slog.Info("SettleGuest request received", "group_id", groupID, "guest_id", guestID)
	defer s.observe("settle_guest", time.Now())

	if groupID == "" || guestID == "" {
		return nil, invalidf("group_id and guest_id required")
	}

	ctx, span := tracer.Start(ctx, "LedgerService.SettleGuest", trace.WithAttributes(
		attribute.String("group_id", groupID),
		attribute.String("guest_id", guestID),
	))
	defer span.End()

	var result *SettlementResult
	err := s.locks.Do(ctx, groupID, func(ctx context.Context) error {
		var err error
		result, err = s.settleGuest(ctx, groupID, guestID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("SettleGuest failed", "group_id", groupID, "guest_id", guestID, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("transfers", len(result.Transfers)))
	return result, nil
}

func (s *LedgerService) settleGuest(ctx context.Context, groupID, guestID string) (*SettlementResult, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, ok := group.Member(guestID); !ok {
		return nil, invalidf("participant %s is not a member of group %s", guestID, groupID)
	}

	expenses, transfers, err := s.store.GetEventsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balance := calculator.Aggregate(expenses, transfers, nil)
	now := time.Now().Unix()

	result := &SettlementResult{GroupID: groupID, GuestID: guestID}
	for _, debt := range calculator.ReduceAll(balance) {
		if debt.Debtor != guestID {
			continue
		}
		result.Transfers = append(result.Transfers, models.Transfer{
			ID:         uuid.New().String(),
			GroupID:    groupID,
			SenderID:   guestID,
			ReceiverID: debt.Creditor,
			Currency:   debt.Currency,
			Amount:     debt.Amount,
			CreatedAt:  now,
			Note:       "guest settlement",
		})
	}

	if len(result.Transfers) == 0 {
		s.metrics.IncrSettlement(metrics.StatusNoDebts, 0)
		slog.Info("SettleGuest found no debts", "group_id", groupID, "guest_id", guestID)
		return result, nil
	}

	if err := s.store.InsertTransfers(ctx, result.Transfers); err != nil {
		s.metrics.IncrSettlement(metrics.StatusFailed, len(result.Transfers))
		return nil, &PartialSettlementError{
			GroupID:   groupID,
			GuestID:   guestID,
			Attempted: len(result.Transfers),
			Err:       err,
		}
	}

	s.metrics.IncrSettlement(metrics.StatusSettled, len(result.Transfers))
	for _, tr := range result.Transfers {
		slog.Debug("Settlement transfer recorded",
			"transfer_id", tr.ID,
			"receiver_id", tr.ReceiverID,
			"amount", currency.Format(tr.Amount, tr.Currency),
			"currency", tr.Currency,
		)
	}
	slog.Info("Guest settled", "group_id", groupID, "guest_id", guestID, "debts_count", len(result.Transfers))
	return result, nil
}

// UserBalance is a user's net position across all of their groups.
type UserBalance struct {
	UserID     string
	Currency   models.Currency
	ByCurrency map[models.Currency]decimal.Decimal
	// Total is ByCurrency converted to Currency, rounded to its minor unit.
	// Positive means the user owes money.
	Total      decimal.Decimal
	RatesAsOf  time.Time
	GroupCount int
}

// UserBalance projects the user's balances in every group onto one currency.
// An empty target uses the service default. A currency without an exchange
// rate fails the whole call with *rates.UnavailableError.
func (s *LedgerService) UserBalance(ctx context.Context, userID string, target models.Currency) (*UserBalance, error) {
	slog.Info("UserBalance request received", "user_id", userID, "currency", target)
	defer s.observe("user_balance", time.Now())

	if userID == "" {
		return nil, invalidf("user_id required")
	}
	target = currency.Normalize(string(target))
	if target == "" {
		target = s.defaultCurrency
	}

	ctx, span := tracer.Start(ctx, "LedgerService.UserBalance", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("currency", string(target)),
	))
	defer span.End()

	groups, err := s.store.ListGroupsByUser(ctx, userID)
	if err != nil {
		slog.Error("UserBalance failed - could not list groups", "user_id", userID, "error", err)
		return nil, err
	}

	var ids []string
	for i := range groups {
		if id, ok := groups[i].ParticipantFor(userID); ok {
			ids = append(ids, id)
		}
	}

	var (
		expenses  []models.Expense
		transfers []models.Transfer
		snap      rates.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, transfers, err = s.store.GetEventsByParticipantIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.rates.LatestRates(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.metrics.IncrRateLookup(metrics.RateError)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("UserBalance failed - could not load data", "user_id", userID, "error", err)
		return nil, err
	}

	byCurrency, total, err := calculator.Project(userID, groups, expenses, transfers, snap, target)
	if err != nil {
		s.metrics.IncrRateLookup(metrics.RateUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("UserBalance failed - missing exchange rate", "user_id", userID, "currency", target, "error", err)
		return nil, err
	}
	s.metrics.IncrRateLookup(metrics.RateOK)

	slog.Info("UserBalance successful",
		"user_id", userID,
		"groups_count", len(groups),
		"currencies_count", len(byCurrency),
		"total", currency.Format(total, target),
		"currency", target,
	)

	return &UserBalance{
		UserID:     userID,
		Currency:   target,
		ByCurrency: byCurrency,
		Total:      currency.Round(total, target),
		RatesAsOf:  snap.FetchedAt,
		GroupCount: len(groups),
	}, nil
}

func (s *LedgerService) observe(operation string, start time.Time) {
	s.metrics.ObserveOperation(operation, time.Since(start))
}
