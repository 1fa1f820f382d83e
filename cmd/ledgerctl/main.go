package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledgerwise/internal/config"
	"github.com/mmynk/ledgerwise/internal/metrics"
	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/rates"
	"github.com/mmynk/ledgerwise/internal/resilience"
	"github.com/mmynk/ledgerwise/internal/service"
	"github.com/mmynk/ledgerwise/internal/storage"
	"github.com/mmynk/ledgerwise/internal/storage/postgres"
	"github.com/mmynk/ledgerwise/internal/storage/sqlite"
	"github.com/mmynk/ledgerwise/pkg/logging"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  create-group  -name NAME -members "Alice=user-1,Bob=user-2,Guest"
  add-guest     -group ID -name NAME
  expense       -group ID -currency EUR -total 30 -payer ID [-participants ID,ID] [-description TEXT]
  transfer      -group ID -from ID -to ID -currency EUR -amount 10 [-note TEXT]
  balances      -group ID
  settle-guest  -group ID -guest ID
  networth      -user ID [-currency EUR]
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	logging.SetupWith(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		return 1
	}
	defer store.Close()
	slog.Debug("Storage initialized", "driver", cfg.StorageDriver)

	m := metrics.New()
	svc := service.NewLedgerService(store, newRatesProvider(cfg), m, cfg.DefaultCurrency)

	out, err := logCommand(args[0], func() (any, error) {
		return dispatch(ctx, svc, args[0], args[1:])
	})
	if cfg.MetricsFile != "" {
		if werr := m.WriteFile(cfg.MetricsFile); werr != nil {
			slog.Warn("Failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("Failed to write output", "error", err)
		return 1
	}
	return 0
}

// logCommand runs fn and logs its outcome and duration.
func logCommand(command string, fn func() (any, error)) (any, error) {
	start := time.Now()
	out, err := fn()
	duration := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		slog.Info("Command ok", "command", command, "duration_ms", duration)
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, storage.ErrNotFound):
		slog.Warn("Command rejected", "command", command, "error", err, "duration_ms", duration)
	default:
		slog.Error("Command failed", "command", command, "error", err, "duration_ms", duration)
	}
	return out, err
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverPostgres {
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	return sqlite.New(cfg.DBPath)
}

// newRatesProvider uses the remote rate service when RATES_URL is set.
// Otherwise only the default currency can be projected.
func newRatesProvider(cfg *config.Config) rates.Provider {
	if cfg.RatesURL == "" {
		return rates.NewStatic(rates.Snapshot{Base: cfg.DefaultCurrency, FetchedAt: time.Now()})
	}
	return rates.NewHTTPProvider(
		&http.Client{Timeout: cfg.RatesTimeout},
		cfg.RatesURL,
		cfg.RatesTTL,
		resilience.NewCircuitBreaker("exchange-rates"),
		resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
	)
}

func dispatch(ctx context.Context, svc *service.LedgerService, cmd string, args []string) (any, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	group := fs.String("group", "", "group ID")

	switch cmd {
	case "create-group":
		name := fs.String("name", "", "group name")
		members := fs.String("members", "", "comma-separated Name=userID pairs; a bare name is a guest")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return svc.CreateGroup(ctx, *name, parseMembers(*members))

	case "add-guest":
		name := fs.String("name", "", "guest name")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return svc.AddGuest(ctx, *group, *name)

	case "expense":
		cur := fs.String("currency", "", "currency code")
		total := fs.String("total", "", "total amount")
		payer := fs.String("payer", "", "participant who paid")
		participants := fs.String("participants", "", "comma-separated participant IDs, default all members")
		description := fs.String("description", "", "description")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(*total)
		if err != nil {
			return nil, fmt.Errorf("%w: total %q: %v", service.ErrInvalidArgument, *total, err)
		}
		return svc.RecordExpense(ctx, service.ExpenseInput{
			GroupID:      *group,
			Description:  *description,
			Currency:     models.Currency(*cur),
			Total:        amount,
			PayerID:      *payer,
			Participants: splitList(*participants),
		})

	case "transfer":
		from := fs.String("from", "", "sending participant")
		to := fs.String("to", "", "receiving participant")
		cur := fs.String("currency", "", "currency code")
		value := fs.String("amount", "", "amount")
		note := fs.String("note", "", "note")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(*value)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v", service.ErrInvalidArgument, *value, err)
		}
		return svc.RecordTransfer(ctx, service.TransferInput{
			GroupID:    *group,
			SenderID:   *from,
			ReceiverID: *to,
			Currency:   models.Currency(*cur),
			Amount:     amount,
			Note:       *note,
		})

	case "balances":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return svc.GroupBalances(ctx, *group)

	case "settle-guest":
		guest := fs.String("guest", "", "guest participant ID")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return svc.SettleGuest(ctx, *group, *guest)

	case "networth":
		user := fs.String("user", "", "user ID")
		cur := fs.String("currency", "", "target currency, default DEFAULT_CURRENCY")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return svc.UserBalance(ctx, *user, models.Currency(*cur))

	default:
		fmt.Fprint(os.Stderr, usage)
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

// parseMembers parses "Alice=user-1,Bob" into members; entries without a
// user ID become guests.
func parseMembers(s string) []models.Member {
	var members []models.Member
	for _, entry := range splitList(s) {
		name, userID, _ := strings.Cut(entry, "=")
		members = append(members, models.Member{
			Name:   strings.TrimSpace(name),
			UserID: strings.TrimSpace(userID),
		})
	}
	return members
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
