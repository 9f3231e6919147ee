package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"friendbot/internal/bank"
	"friendbot/pkg/friendbot"
)

// Ledger is the account store behind the currency commands.
type Ledger interface {
	Balance(ctx context.Context, guildID, userID string) (int64, error)
	SetBalance(ctx context.Context, guildID, userID string, balance int64) error
	MakeTransaction(ctx context.Context, guildID, userID string, amount float64) (int64, error)
	Transfer(ctx context.Context, guildID, fromUserID, toUserID string, amount int64) error
}

// BankCommand handles the member-facing currency operations: checking one's
// balance and sending currency to another member.
type BankCommand struct {
	friendbot.BaseCommand

	ledger Ledger
}

// NewBankCommand creates the bank command.
func NewBankCommand(ledger Ledger) *BankCommand {
	return &BankCommand{ledger: ledger}
}

// Name implements friendbot.Command.
func (c *BankCommand) Name() string {
	return "bank"
}

// RequiredPermissions implements friendbot.Command.
func (c *BankCommand) RequiredPermissions() friendbot.PermissionSet {
	return friendbot.NewPermissionSet(
		friendbot.PermissionUseCommands,
		friendbot.PermissionBank,
	)
}

// Check implements friendbot.Command.
func (c *BankCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	fields := strings.Fields(event.Text)
	if len(fields) == 0 || fields[0] != "$bank" {
		return false, nil
	}
	if len(fields) == 1 {
		return true, nil
	}

	return fields[1] == "balance" || fields[1] == "send", nil
}

// Execute implements friendbot.Command.
func (c *BankCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	fields := strings.Fields(event.Text)
	if len(fields) == 1 || fields[1] == "balance" {
		return c.sayBalance(ctx, event)
	}

	return c.send(ctx, event, fields)
}

func (c *BankCommand) sayBalance(ctx context.Context, event *friendbot.TriggerEvent) error {
	balance, err := c.ledger.Balance(ctx, event.GuildID, event.ActorID)
	if err != nil {
		return fmt.Errorf("bank balance: %w", err)
	}

	return event.Responder.Reply(ctx, fmt.Sprintf("Your balance is %d.", balance))
}

func (c *BankCommand) send(
	ctx context.Context,
	event *friendbot.TriggerEvent,
	fields []string,
) error {
	if len(fields) != 4 || len(event.Mentions) == 0 {
		return event.Responder.Reply(ctx, "Usage: $bank send @member <amount>")
	}
	amount, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || amount <= 0 {
		return event.Responder.Reply(ctx, "The amount must be a positive whole number.")
	}
	recipient := event.Mentions[0]

	err = c.ledger.Transfer(ctx, event.GuildID, event.ActorID, recipient, amount)
	if errors.Is(err, bank.ErrInsufficientFunds) {
		return event.Responder.Reply(ctx, "You cannot afford that.")
	}
	if errors.Is(err, friendbot.ErrValidation) {
		return event.Responder.Reply(ctx, "You cannot send currency to yourself.")
	}
	if err != nil {
		return fmt.Errorf("bank send: %w", err)
	}

	return event.Responder.Reply(ctx, fmt.Sprintf("Sent %d.", amount))
}

// BankAdminCommand handles the privileged currency operations. It outranks
// BankCommand so its subcommands are never shadowed by the member-facing ones.
type BankAdminCommand struct {
	friendbot.BaseCommand

	ledger Ledger
}

// NewBankAdminCommand creates the bank administration command.
func NewBankAdminCommand(ledger Ledger) *BankAdminCommand {
	return &BankAdminCommand{ledger: ledger}
}

// Name implements friendbot.Command.
func (c *BankAdminCommand) Name() string {
	return "bank-admin"
}

// Priority implements friendbot.Command.
func (c *BankAdminCommand) Priority() int {
	return 10
}

// RequiredPermissions implements friendbot.Command.
func (c *BankAdminCommand) RequiredPermissions() friendbot.PermissionSet {
	return friendbot.NewPermissionSet(
		friendbot.PermissionUseCommands,
		friendbot.PermissionBankAdmin,
	)
}

// Check implements friendbot.Command.
func (c *BankAdminCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	fields := strings.Fields(event.Text)
	if len(fields) < 2 || fields[0] != "$bank" {
		return false, nil
	}

	return fields[1] == "setbalance" || fields[1] == "addbalance", nil
}

// Execute implements friendbot.Command.
func (c *BankAdminCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	fields := strings.Fields(event.Text)
	if len(fields) != 4 || len(event.Mentions) == 0 {
		return event.Responder.Reply(ctx,
			"Usage: $bank setbalance|addbalance @member <amount>")
	}
	target := event.Mentions[0]

	switch fields[1] {
	case "setbalance":
		amount, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return event.Responder.Reply(ctx, "The balance must be a whole number.")
		}
		if err := c.ledger.SetBalance(ctx, event.GuildID, target, amount); err != nil {
			if errors.Is(err, friendbot.ErrValidation) {
				return event.Responder.Reply(ctx, "Balances cannot be negative.")
			}

			return fmt.Errorf("bank setbalance: %w", err)
		}

		return event.Responder.Reply(ctx, fmt.Sprintf("Balance set to %d.", amount))
	case "addbalance":
		amount, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return event.Responder.Reply(ctx, "The amount must be a number.")
		}
		balance, err := c.ledger.MakeTransaction(ctx, event.GuildID, target, amount)
		if errors.Is(err, bank.ErrInsufficientFunds) {
			return event.Responder.Reply(ctx, "That would leave the account negative.")
		}
		if err != nil {
			return fmt.Errorf("bank addbalance: %w", err)
		}

		return event.Responder.Reply(ctx, fmt.Sprintf("New balance is %d.", balance))
	default:
		return event.Responder.Reply(ctx,
			"Usage: $bank setbalance|addbalance @member <amount>")
	}
}
