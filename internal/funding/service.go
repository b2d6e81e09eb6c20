// Package funding tops up wallets through the payment gateway: it starts
// checkouts from chat, settles them from webhooks and manual verification.
package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/chat"
	"github.com/m3rciful/vtubot/internal/conversation"
	"github.com/m3rciful/vtubot/internal/ledger"
	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/paystack"
	"github.com/m3rciful/vtubot/internal/store"
)

const component = "service.funding"

// StepAwaitingFundAmount waits for the amount to fund.
const StepAwaitingFundAmount state.State = "awaiting_fund_amount"

const keyUsername = "username"

// ErrUnknownCustomer is returned when a webhook names an email with no user.
var ErrUnknownCustomer = errors.New("funding: unknown customer")

// Ledger is the wallet access funding needs.
type Ledger interface {
	Register(ctx context.Context, telegramID int64, username string) (*store.User, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	OpenFunding(ctx context.Context, userID int64, amount money.Amount, reference string) (*store.Transaction, error)
	Settle(ctx context.Context, reference string, amount money.Amount, ownerID int64) (*store.Settlement, error)
}

// Gateway is the payment gateway API.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.Charge, error)
}

// Notifier delivers chat messages outside of an update.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Service implements the funding flow.
type Service struct {
	conv     *conversation.Engine
	ledger   Ledger
	gateway  Gateway
	notifier Notifier
	secret   string
	newRef   func() string
}

// New builds a Service and registers its conversation step on conv.
func New(conv *conversation.Engine, l Ledger, gw Gateway, n Notifier, webhookSecret string) *Service {
	s := &Service{
		conv:     conv,
		ledger:   l,
		gateway:  gw,
		notifier: n,
		secret:   webhookSecret,
		newRef:   uuid.NewString,
	}
	conv.Register(StepAwaitingFundAmount, s.enterAmount)
	return s
}

// Start asks the user for an amount, discarding any previous session.
func (s *Service) Start(ctx context.Context, userID int64, username string) (chat.Reply, error) {
	return s.conv.Do(ctx, userID, func(sess *state.Session) (chat.Reply, error) {
		sess.Reset(StepAwaitingFundAmount)
		sess.Set(keyUsername, username)
		return chat.Text(msgEnterAmount), nil
	})
}

func (s *Service) enterAmount(ctx context.Context, t *conversation.Turn) (chat.Reply, error) {
	amount, err := money.ParseNaira(t.Text)
	if err != nil {
		return chat.Text(msgInvalidAmount), nil
	}
	username := t.Session.Get(keyUsername)
	t.Session.Reset(state.StateIdle)

	user, err := s.ledger.Register(ctx, t.UserID, username)
	if err != nil {
		return s.startFailed(ctx, t.UserID, "funding.register.fail", err), nil
	}
	ref := s.newRef()
	if _, err := s.ledger.OpenFunding(ctx, user.ID, amount, ref); err != nil {
		return s.startFailed(ctx, t.UserID, "funding.open.fail", err), nil
	}
	res, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    amount,
		Reference: ref,
	})
	if err != nil {
		return s.startFailed(ctx, t.UserID, "funding.initialize.fail", err, slog.String("reference", ref)), nil
	}
	logger.Info(ctx, component, "funding.initialize",
		slog.Int64("user_id", t.UserID),
		slog.String("reference", ref),
		slog.Int64("amount_kobo", amount.Kobo()),
		slog.String("outcome", "ok"),
	)
	return chat.Text(msgPaymentLink(amount, res.AuthorizationURL)), nil
}

func (s *Service) startFailed(ctx context.Context, userID int64, event string, err error, attrs ...slog.Attr) chat.Reply {
	attrs = append(attrs,
		slog.Int64("user_id", userID),
		slog.String("outcome", "fail"),
		slog.String("err", err.Error()),
	)
	logger.Error(ctx, component, event, attrs...)
	return chat.Text(msgStartFailed)
}

// Result reports what a charge notification did.
type Result int

const (
	// Credited means the transaction settled and the wallet was credited.
	Credited Result = iota
	// Duplicate means the transaction had already settled.
	Duplicate
	// UnknownReference means no pending transaction matched.
	UnknownReference
)

// ProcessChargeSuccess settles the transaction named by a verified
// charge.success event and notifies its owner on first delivery.
func (s *Service) ProcessChargeSuccess(ctx context.Context, charge paystack.Charge) (Result, error) {
	user, err := s.ledger.UserByEmail(ctx, charge.Customer.Email)
	if errors.Is(err, ledger.ErrNotRegistered) {
		logger.Warn(ctx, component, "webhook.customer.unknown",
			slog.String("reference", charge.Reference),
			slog.String("email", charge.Customer.Email),
			slog.String("outcome", "rejected"),
		)
		return UnknownReference, ErrUnknownCustomer
	}
	if err != nil {
		return UnknownReference, err
	}

	st, err := s.ledger.Settle(ctx, charge.Reference, charge.Amount, user.ID)
	switch {
	case errors.Is(err, ledger.ErrAlreadySettled):
		logger.Info(ctx, component, "webhook.charge",
			slog.String("reference", charge.Reference),
			slog.String("status", "duplicate"),
		)
		return Duplicate, nil
	case errors.Is(err, ledger.ErrTransactionNotFound):
		logger.Warn(ctx, component, "webhook.reference.unknown",
			slog.String("reference", charge.Reference),
			slog.Int64("user_id", user.TelegramID),
		)
		return UnknownReference, nil
	case err != nil:
		return UnknownReference, err
	}

	s.notify(ctx, st.TelegramID, msgCredited(st.Credited, charge.Reference))
	return Credited, nil
}

func (s *Service) notify(ctx context.Context, userID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, text); err != nil {
		logger.Warn(ctx, component, "notify.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// Verify settles reference on behalf of userID after confirming it with the
// gateway. Only the caller's own transactions can be settled this way.
func (s *Service) Verify(ctx context.Context, userID int64, reference string) (chat.Reply, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return chat.Text(msgVerifyUsage), nil
	}
	user, err := s.ledger.UserByTelegramID(ctx, userID)
	if errors.Is(err, ledger.ErrNotRegistered) {
		return chat.Text(msgNotRegistered), nil
	}
	if err != nil {
		return chat.Reply{}, err
	}

	charge, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		logger.Warn(ctx, component, "verify.gateway.fail",
			slog.String("reference", reference),
			slog.String("err", err.Error()),
		)
		return chat.Text(msgVerifyError), nil
	}
	if charge.Status != paystack.StatusSuccess {
		return chat.Text(msgVerifyFailed(charge.GatewayResponse)), nil
	}

	st, err := s.ledger.Settle(ctx, reference, charge.Amount, user.ID)
	switch {
	case errors.Is(err, ledger.ErrAlreadySettled), errors.Is(err, ledger.ErrTransactionNotFound):
		return chat.Text(msgAlreadyVerified), nil
	case err != nil:
		logger.Error(ctx, component, "verify.settle.fail",
			slog.String("reference", reference),
			slog.String("err", err.Error()),
		)
		return chat.Text(msgVerifyError), nil
	}
	return chat.Text(msgVerified(st.Credited)), nil
}

func msgPaymentLink(amount money.Amount, url string) string {
	return fmt.Sprintf("💳 Click the link below to fund your wallet with %s:\n%s", amount, url)
}

func msgCredited(amount money.Amount, reference string) string {
	return fmt.Sprintf("💰 Your wallet has been credited with %s. Transaction reference: %s.", amount, reference)
}

func msgVerified(amount money.Amount) string {
	return fmt.Sprintf("✅ Payment of %s verified and added to your wallet.", amount)
}

func msgVerifyFailed(reason string) string {
	if reason == "" {
		reason = "payment not completed"
	}
	return "❌ Payment verification failed: " + reason
}

const (
	msgEnterAmount     = "💰 Please enter the amount you want to fund:"
	msgInvalidAmount   = "❌ Invalid amount. Please enter a valid number."
	msgStartFailed     = "❌ Could not start the payment. Please try again later."
	msgVerifyUsage     = "Usage: /verify <reference>"
	msgVerifyError     = "❌ Error verifying payment. Please try again."
	msgAlreadyVerified = "❌ Transaction already verified or invalid."
	msgNotRegistered   = "⚠️ You are not registered. Please use /start to register."
)
