package commands

import (
	"context"
	"strings"
	"testing"

	"friendbot/internal/bank"
	"friendbot/pkg/friendbot"
)

// fakeLedger is an in-memory Ledger with the same overdraft rules as the
// real one.
type fakeLedger struct {
	balances map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]int64)}
}

func (l *fakeLedger) Balance(_ context.Context, guildID, userID string) (int64, error) {
	return l.balances[guildID+"/"+userID], nil
}

func (l *fakeLedger) SetBalance(_ context.Context, guildID, userID string, balance int64) error {
	if balance < 0 {
		return friendbot.ErrValidation
	}
	l.balances[guildID+"/"+userID] = balance

	return nil
}

func (l *fakeLedger) MakeTransaction(
	_ context.Context,
	guildID, userID string,
	amount float64,
) (int64, error) {
	key := guildID + "/" + userID
	updated := l.balances[key] + int64(amount)
	if updated < 0 {
		return 0, bank.ErrInsufficientFunds
	}
	l.balances[key] = updated

	return updated, nil
}

func (l *fakeLedger) Transfer(
	_ context.Context,
	guildID, fromUserID, toUserID string,
	amount int64,
) error {
	if fromUserID == toUserID {
		return friendbot.ErrValidation
	}
	fromKey := guildID + "/" + fromUserID
	if l.balances[fromKey] < amount {
		return bank.ErrInsufficientFunds
	}
	l.balances[fromKey] -= amount
	l.balances[guildID+"/"+toUserID] += amount

	return nil
}

func TestBankBalanceReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.balances["guild/actor"] = 42
	command := NewBankCommand(ledger)
	rec := &replyRecorder{}

	if err := command.Execute(ctx, newEvent("$bank", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "42") {
		t.Fatalf("reply = %q, want balance", rec.lastReply())
	}
}

func TestBankSend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.balances["guild/actor"] = 100
	command := NewBankCommand(ledger)
	rec := &replyRecorder{}

	event := newEvent("$bank send @friend 40", rec)
	event.Mentions = []string{"friend"}

	if err := command.Execute(ctx, event); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ledger.balances["guild/actor"] != 60 || ledger.balances["guild/friend"] != 40 {
		t.Fatalf("balances = %v after send", ledger.balances)
	}
}

func TestBankSendRejectsOverdraft(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.balances["guild/actor"] = 10
	command := NewBankCommand(ledger)
	rec := &replyRecorder{}

	event := newEvent("$bank send @friend 40", rec)
	event.Mentions = []string{"friend"}

	if err := command.Execute(ctx, event); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "afford") {
		t.Fatalf("reply = %q, want overdraft notice", rec.lastReply())
	}
	if ledger.balances["guild/actor"] != 10 {
		t.Fatalf("balance = %d, changed by failed send", ledger.balances["guild/actor"])
	}
}

func TestBankAdminMatchesOnlyPrivilegedSubcommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	command := NewBankAdminCommand(newFakeLedger())

	matched, err := command.Check(ctx, newEvent("$bank setbalance @friend 10", &replyRecorder{}))
	if err != nil || !matched {
		t.Fatalf("Check(setbalance) = %v, %v", matched, err)
	}
	matched, err = command.Check(ctx, newEvent("$bank balance", &replyRecorder{}))
	if err != nil || matched {
		t.Fatalf("Check(balance) = %v, %v, want no match", matched, err)
	}
}

func TestBankAdminSetBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := newFakeLedger()
	command := NewBankAdminCommand(ledger)
	rec := &replyRecorder{}

	event := newEvent("$bank setbalance @friend 500", rec)
	event.Mentions = []string{"friend"}

	if err := command.Execute(ctx, event); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ledger.balances["guild/friend"] != 500 {
		t.Fatalf("balance = %d, want 500", ledger.balances["guild/friend"])
	}
}

func TestBankAdminAddBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.balances["guild/friend"] = 50
	command := NewBankAdminCommand(ledger)
	rec := &replyRecorder{}

	event := newEvent("$bank addbalance @friend -20", rec)
	event.Mentions = []string{"friend"}

	if err := command.Execute(ctx, event); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ledger.balances["guild/friend"] != 30 {
		t.Fatalf("balance = %d, want 30", ledger.balances["guild/friend"])
	}
	if !strings.Contains(rec.lastReply(), "30") {
		t.Fatalf("reply = %q, want new balance", rec.lastReply())
	}
}
