package calculator

import (
	"math/rand"
	"testing"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// d parses a decimal literal; test inputs are always valid.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// expense builds an expense from participant->amount maps.
func expense(c models.Currency, payments, shares map[string]string) models.Expense {
	e := models.Expense{Currency: c, Amount: decimal.Zero}
	for id, amount := range payments {
		e.Payments = append(e.Payments, models.Payment{ParticipantID: id, Amount: d(amount)})
		e.Amount = e.Amount.Add(d(amount))
	}
	for id, amount := range shares {
		e.Shares = append(e.Shares, models.Share{ParticipantID: id, Amount: d(amount)})
	}
	return e
}

func transfer(sender, receiver string, amount string, c models.Currency) models.Transfer {
	return models.Transfer{SenderID: sender, ReceiverID: receiver, Amount: d(amount), Currency: c}
}

func assertBalance(t *testing.T, got map[string]decimal.Decimal, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d participants %v, want %d %v", len(got), got, len(want), want)
	}
	for id, w := range want {
		if g, ok := got[id]; !ok || !g.Equal(d(w)) {
			t.Errorf("balance[%s] = %s, want %s", id, g, w)
		}
	}
}

func TestAggregate_SingleExpense(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"X": "30"}, map[string]string{"X": "10", "Y": "10", "Z": "10"}),
	}

	balance := Aggregate(expenses, nil, nil)

	assertBalance(t, balance["EUR"], map[string]string{"X": "-20", "Y": "10", "Z": "10"})
	if !balance.Sum("EUR").IsZero() {
		t.Errorf("EUR sum = %s, want 0", balance.Sum("EUR"))
	}
}

func TestAggregate_TransferOnly(t *testing.T) {
	balance := Aggregate(nil, []models.Transfer{transfer("A", "B", "15", "USD")}, nil)

	assertBalance(t, balance["USD"], map[string]string{"A": "-15", "B": "15"})
}

func TestAggregate_SeparatesCurrencies(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"A": "10"}, map[string]string{"A": "5", "B": "5"}),
		expense("JPY", map[string]string{"B": "1000"}, map[string]string{"A": "500", "B": "500"}),
	}

	balance := Aggregate(expenses, nil, nil)

	got := balance.Currencies()
	if len(got) != 2 || got[0] != "EUR" || got[1] != "JPY" {
		t.Fatalf("Currencies() = %v, want [EUR JPY]", got)
	}
	assertBalance(t, balance["EUR"], map[string]string{"A": "-5", "B": "5"})
	assertBalance(t, balance["JPY"], map[string]string{"A": "500", "B": "-500"})
}

func TestAggregate_OmitsZeroBalances(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"A": "20"}, map[string]string{"A": "10", "B": "10"}),
	}
	transfers := []models.Transfer{transfer("B", "A", "10", "EUR")}

	balance := Aggregate(expenses, transfers, nil)

	if len(balance) != 0 {
		t.Errorf("expected empty balance after full settlement, got %v", balance)
	}
}

func TestAggregate_Filter(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"X": "30"}, map[string]string{"X": "10", "Y": "10", "Z": "10"}),
	}
	transfers := []models.Transfer{transfer("Y", "X", "4", "EUR")}

	balance := Aggregate(expenses, transfers, NewParticipantFilter("Y"))

	assertBalance(t, balance["EUR"], map[string]string{"Y": "6"})
}

func TestAggregate_EmptyFilterIncludesAll(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"X": "30"}, map[string]string{"X": "10", "Y": "10", "Z": "10"}),
	}

	all := Aggregate(expenses, nil, nil)
	empty := Aggregate(expenses, nil, NewParticipantFilter())

	if len(all["EUR"]) != 3 || len(empty["EUR"]) != 3 {
		t.Errorf("expected 3 participants with and without empty filter, got %d and %d", len(all["EUR"]), len(empty["EUR"]))
	}
}

func TestAggregate_NoRoundingDuringAccumulation(t *testing.T) {
	expenses := []models.Expense{
		expense("EUR", map[string]string{"A": "0.001"}, map[string]string{"B": "0.001"}),
		expense("EUR", map[string]string{"A": "0.004"}, map[string]string{"B": "0.004"}),
	}

	balance := Aggregate(expenses, nil, nil)

	assertBalance(t, balance["EUR"], map[string]string{"A": "-0.005", "B": "0.005"})
}

func TestAggregate_MalformedInputDoesNotPanic(t *testing.T) {
	// Shares sum to 5 but payments to 10: a violated precondition.
	expenses := []models.Expense{
		expense("EUR", map[string]string{"A": "10"}, map[string]string{"B": "5"}),
	}

	balance := Aggregate(expenses, nil, nil)

	if balance.Sum("EUR").IsZero() {
		t.Error("expected non-zero sum for malformed input")
	}
	_ = Reduce(balance["EUR"], "EUR")
}

// randomLedger generates a valid group history: every expense's shares and
// payments sum to its amount.
func randomLedger(r *rand.Rand, participants []string) ([]models.Expense, []models.Transfer) {
	currencies := []models.Currency{"EUR", "USD", "JPY"}

	var expenses []models.Expense
	for i := 0; i < 1+r.Intn(12); i++ {
		c := currencies[r.Intn(len(currencies))]
		amount := decimal.New(int64(1+r.Intn(100000)), -2)
		if c == "JPY" {
			amount = decimal.NewFromInt(int64(1 + r.Intn(50000)))
		}

		sharers := pick(r, participants)
		shares, err := SplitExpense(nil, amount, amount, sharers, c)
		if err != nil {
			panic(err)
		}
		payers := pick(r, participants)
		paid, err := SplitExpense(nil, amount, amount, payers, c)
		if err != nil {
			panic(err)
		}

		e := models.Expense{Currency: c, Amount: amount, Shares: shares}
		for _, p := range paid {
			e.Payments = append(e.Payments, models.Payment{ParticipantID: p.ParticipantID, Amount: p.Amount})
		}
		expenses = append(expenses, e)
	}

	var transfers []models.Transfer
	for i := 0; i < r.Intn(4); i++ {
		pair := r.Perm(len(participants))
		transfers = append(transfers, models.Transfer{
			SenderID:   participants[pair[0]],
			ReceiverID: participants[pair[1]],
			Currency:   currencies[r.Intn(2)],
			Amount:     decimal.New(int64(1+r.Intn(5000)), -2),
		})
	}
	return expenses, transfers
}

// pick returns a random non-empty subset of ids.
func pick(r *rand.Rand, ids []string) []string {
	perm := r.Perm(len(ids))
	n := 1 + r.Intn(len(ids))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ids[perm[i]]
	}
	return out
}

func randomParticipants(r *rand.Rand) []string {
	all := []string{"ana", "ben", "cai", "dev", "eli", "fay", "gus", "hal"}
	return all[:2+r.Intn(len(all)-1)]
}

func TestAggregate_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		expenses, transfers := randomLedger(r, randomParticipants(r))
		balance := Aggregate(expenses, transfers, nil)
		for _, c := range balance.Currencies() {
			if sum := balance.Sum(c); !sum.IsZero() {
				t.Fatalf("run %d: %s sums to %s, want 0", run, c, sum)
			}
		}
	}
}
