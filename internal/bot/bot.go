// Package bot maps Telegram commands, buttons and free text onto the flows.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/vtubot/core/logger"
	tg "github.com/m3rciful/vtubot/core/telegram"
	"github.com/m3rciful/vtubot/core/telegram/callbacks"
	"github.com/m3rciful/vtubot/core/telegram/commands"
	tghelpers "github.com/m3rciful/vtubot/core/telegram/helpers"
	"github.com/m3rciful/vtubot/core/telegram/router"
	"github.com/m3rciful/vtubot/internal/chat"
	"github.com/m3rciful/vtubot/internal/ledger"
	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/purchase"
	"github.com/m3rciful/vtubot/internal/store"

	tele "gopkg.in/telebot.v4"
)

const component = "tg"

// DefaultSupportLink is shown in /help when none is configured.
const DefaultSupportLink = "https://wa.me/+2348184893594"

// Wallet is the ledger surface used by commands.
type Wallet interface {
	Register(ctx context.Context, telegramID int64, username string) (*store.User, error)
	Balance(ctx context.Context, telegramID int64) (money.Amount, error)
}

// Purchases is the purchase flow.
type Purchases interface {
	StartAirtime(ctx context.Context, userID int64) (chat.Reply, error)
	StartData(ctx context.Context, userID int64) (chat.Reply, error)
	SelectAirtimeOperator(ctx context.Context, userID int64, payload string) (chat.Reply, error)
	HandleDataCallback(ctx context.Context, userID int64, payload string) (chat.Reply, error)
}

// Funding is the wallet funding flow.
type Funding interface {
	Start(ctx context.Context, userID int64, username string) (chat.Reply, error)
	Verify(ctx context.Context, userID int64, reference string) (chat.Reply, error)
}

// Conversations routes free text to the active step.
type Conversations interface {
	Handle(ctx context.Context, userID int64, text string) (chat.Reply, bool, error)
	InProgress(ctx context.Context, userID int64) bool
	Reset(ctx context.Context, userID int64) error
}

// Deps are the collaborators of Bot.
type Deps struct {
	Wallet        Wallet
	Purchases     Purchases
	Funding       Funding
	Conversations Conversations
	SupportLink   string
}

// Bot owns the registry of commands and callbacks.
type Bot struct {
	deps Deps
	reg  *tg.Registry
}

// New builds a Bot and registers its commands and callbacks.
func New(deps Deps) *Bot {
	if deps.SupportLink == "" {
		deps.SupportLink = DefaultSupportLink
	}
	b := &Bot{deps: deps, reg: tg.NewRegistry()}
	b.register()
	return b
}

// Registry returns the populated registry.
func (b *Bot) Registry() *tg.Registry { return b.reg }

// Routes returns every Telegram route the bot serves.
func (b *Bot) Routes() []tg.Route {
	routes := router.CommandRoutes(b.reg)
	routes = append(routes, router.TextRoutes(b, b.reg, router.TextOptions{
		UnknownDocument: func(c tele.Context) error {
			return chat.Send(c, chat.Text(msgUnknownText))
		},
	})...)
	routes = append(routes, router.CallbackRoute(b.reg, router.CallbackOptions{}))
	return routes
}

func (b *Bot) register() {
	cmds := map[string]commands.Command{
		"/start":   {Handler: b.withUser(b.start), Description: "Register and show the menu"},
		"/help":    {Handler: b.withUser(b.help), Description: "How to use the bot"},
		"/balance": {Handler: b.withUser(b.balance), Description: "Check your wallet balance"},
		"/airtime": {Handler: b.withUser(b.airtime), Description: "Buy airtime"},
		"/data":    {Handler: b.withUser(b.data), Description: "Buy a data plan"},
		"/fund":    {Handler: b.withUser(b.fund), Description: "Fund your wallet"},
		"/verify":  {Handler: b.withUser(b.verify), Description: "Verify a payment reference"},
		"/cancel":  {Handler: b.withUser(b.cancel), Description: "Cancel the current purchase"},
	}
	for name, cmd := range cmds {
		b.reg.RegisterCommand(name, cmd)
	}

	_ = b.reg.RegisterCallback(purchase.CallbackAirtime, b.withUser(func(ctx context.Context, in input) (chat.Reply, error) {
		return b.deps.Purchases.SelectAirtimeOperator(ctx, in.userID, in.payload)
	}))
	_ = b.reg.RegisterCallback(purchase.CallbackData, b.withUser(func(ctx context.Context, in input) (chat.Reply, error) {
		return b.deps.Purchases.HandleDataCallback(ctx, in.userID, in.payload)
	}))
	b.reg.SetTextFallback(func(c tele.Context) error {
		return chat.Send(c, chat.Text(msgUnknownText))
	})
}

// input is what handlers need from an update.
type input struct {
	userID   int64
	username string
	payload  string
}

type handlerFunc func(ctx context.Context, in input) (chat.Reply, error)

// withUser adapts a handler to telebot: it extracts the sender, runs the
// handler and sends the reply. Handler errors are logged and answered with a
// generic message.
func (b *Bot) withUser(h handlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		in := input{userID: sender.ID, username: sender.Username}
		if cb := c.Callback(); cb != nil {
			in.payload = callbacks.Payload(c)
		} else if m := c.Message(); m != nil {
			in.payload = m.Payload
		}

		ctx := tghelpers.BuildContext(c)
		reply, err := h(ctx, in)
		if err != nil {
			logger.Error(ctx, component, "handler.fail",
				slog.String("handler", logger.HandlerFrom(ctx)),
				slog.String("err", err.Error()),
			)
			reply = chat.Text(msgGenericError)
		}
		return chat.Send(c, reply)
	}
}

// OnRateLimited answers an update dropped by the rate limiter.
func (b *Bot) OnRateLimited(c tele.Context) error {
	if cb := c.Callback(); cb != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return chat.Send(c, chat.Text(msgSlowDown))
}

// InProgress reports whether the user has an active conversation.
func (b *Bot) InProgress(ctx context.Context, userID int64) bool {
	return b.deps.Conversations.InProgress(ctx, userID)
}

// HandleText feeds a free-text message to the user's active step.
func (b *Bot) HandleText(c tele.Context) error {
	return b.withUser(func(ctx context.Context, in input) (chat.Reply, error) {
		reply, handled, err := b.deps.Conversations.Handle(ctx, in.userID, c.Text())
		if err != nil || handled {
			return reply, err
		}
		return chat.Text(msgUnknownText), nil
	})(c)
}

func (b *Bot) start(ctx context.Context, in input) (chat.Reply, error) {
	u, err := b.deps.Wallet.Register(ctx, in.userID, in.username)
	if err != nil {
		return chat.Reply{}, err
	}
	return chat.Text(welcomeText(u.Username)), nil
}

func (b *Bot) help(context.Context, input) (chat.Reply, error) {
	return chat.Text(helpText(b.deps.SupportLink)), nil
}

func (b *Bot) balance(ctx context.Context, in input) (chat.Reply, error) {
	bal, err := b.deps.Wallet.Balance(ctx, in.userID)
	if errors.Is(err, ledger.ErrNotRegistered) {
		return chat.Text(msgNotRegistered), nil
	}
	if err != nil {
		return chat.Reply{}, err
	}
	return chat.Text(fmt.Sprintf("💰 Your wallet balance is %s", bal)), nil
}

func (b *Bot) airtime(ctx context.Context, in input) (chat.Reply, error) {
	return b.deps.Purchases.StartAirtime(ctx, in.userID)
}

func (b *Bot) data(ctx context.Context, in input) (chat.Reply, error) {
	return b.deps.Purchases.StartData(ctx, in.userID)
}

func (b *Bot) fund(ctx context.Context, in input) (chat.Reply, error) {
	return b.deps.Funding.Start(ctx, in.userID, in.username)
}

func (b *Bot) verify(ctx context.Context, in input) (chat.Reply, error) {
	return b.deps.Funding.Verify(ctx, in.userID, in.payload)
}

func (b *Bot) cancel(ctx context.Context, in input) (chat.Reply, error) {
	if !b.deps.Conversations.InProgress(ctx, in.userID) {
		return chat.Text(msgNothingToCancel), nil
	}
	if err := b.deps.Conversations.Reset(ctx, in.userID); err != nil {
		return chat.Reply{}, err
	}
	return chat.Text(msgCancelled), nil
}
