// Package purchase implements the airtime and data purchase conversation.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/core/telegram/callbacks"
	"github.com/m3rciful/vtubot/core/telegram/keyboard"
	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/chat"
	"github.com/m3rciful/vtubot/internal/conversation"
	"github.com/m3rciful/vtubot/internal/ledger"
	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/phone"
	"github.com/m3rciful/vtubot/internal/store"
	"github.com/m3rciful/vtubot/internal/vtu"
)

const component = "service.purchase"

// Conversation steps owned by the purchase flow.
const (
	StepChoosingOperator     state.State = "choosing_operator"
	StepChoosingPlan         state.State = "choosing_plan"
	StepAwaitingAmount       state.State = "awaiting_amount"
	StepAwaitingPhone        state.State = "awaiting_phone"
	StepAwaitingConfirmation state.State = "awaiting_confirmation"
)

// Callback routing keys.
const (
	CallbackAirtime = "airtime"
	CallbackData    = "data"
)

// Session data keys.
const (
	keyKind     = "kind"
	keyOperator = "operator"
	keyPlanID   = "plan_id"
	keyPrice    = "price"
	keyValidity = "validity"
	keyLabel    = "label"
	keyPhone    = "phone"

	planKeyPrefix = "plan:"
)

const (
	kindAirtime = vtu.TypeAirtime
	kindData    = vtu.TypeData
)

// DefaultMinAirtime is the smallest airtime amount accepted.
var DefaultMinAirtime = money.Naira(50)

// DefaultSensitiveErrors lists provider message fragments never shown to users.
var DefaultSensitiveErrors = []string{"Insufficient Balance"}

// Ledger is the balance access the flow needs.
type Ledger interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (*store.User, error)
	Debit(ctx context.Context, telegramID int64, amount money.Amount) (money.Amount, error)
}

// Vendor is the vending provider.
type Vendor interface {
	FetchPlans(ctx context.Context, op phone.Operator) ([]vtu.Plan, error)
	TopUp(ctx context.Context, req vtu.Request) (*vtu.Result, error)
}

// Options tune the flow.
type Options struct {
	MinAirtime      money.Amount
	SensitiveErrors []string
}

// Flow drives purchases through the conversation engine.
type Flow struct {
	conv   *conversation.Engine
	ledger Ledger
	vendor Vendor
	opts   Options
}

// New builds a Flow and registers its steps on conv.
func New(conv *conversation.Engine, l Ledger, v Vendor, opts Options) *Flow {
	if opts.MinAirtime <= 0 {
		opts.MinAirtime = DefaultMinAirtime
	}
	if opts.SensitiveErrors == nil {
		opts.SensitiveErrors = DefaultSensitiveErrors
	}
	f := &Flow{conv: conv, ledger: l, vendor: v, opts: opts}
	conv.Register(StepChoosingOperator, f.useButtons)
	conv.Register(StepChoosingPlan, f.useButtons)
	conv.Register(StepAwaitingAmount, f.enterAmount)
	conv.Register(StepAwaitingPhone, f.enterPhone)
	conv.Register(StepAwaitingConfirmation, f.confirm)
	return f
}

// StartAirtime begins an airtime purchase, discarding any previous session.
func (f *Flow) StartAirtime(ctx context.Context, userID int64) (chat.Reply, error) {
	return f.start(ctx, userID, kindAirtime, "Airtime", msgChooseAirtimeOp)
}

// StartData begins a data purchase, discarding any previous session.
func (f *Flow) StartData(ctx context.Context, userID int64) (chat.Reply, error) {
	return f.start(ctx, userID, kindData, "Data", msgChooseDataOp)
}

func (f *Flow) start(ctx context.Context, userID int64, kind, prefix, prompt string) (chat.Reply, error) {
	if _, err := f.ledger.UserByTelegramID(ctx, userID); err != nil {
		if errors.Is(err, ledger.ErrNotRegistered) {
			return chat.Text(msgNotRegistered), nil
		}
		return chat.Reply{}, err
	}
	return f.conv.Do(ctx, userID, func(s *state.Session) (chat.Reply, error) {
		s.Reset(StepChoosingOperator)
		s.Set(keyKind, kind)
		return chat.Reply{Text: prompt, Buttons: operatorButtons(prefix)}, nil
	})
}

func operatorButtons(prefix string) [][]keyboard.Button {
	ops := phone.Operators()
	buttons := make([]keyboard.Button, 0, len(ops))
	for _, op := range ops {
		buttons = append(buttons, keyboard.Button{Text: op.Label(), Data: callbacks.Join(prefix, op.Label())})
	}
	return keyboard.Grid(buttons, 2)
}

// SelectAirtimeOperator handles an "Airtime_<network>" button press.
func (f *Flow) SelectAirtimeOperator(ctx context.Context, userID int64, payload string) (chat.Reply, error) {
	op := operatorFromPayload(payload)
	return f.conv.Do(ctx, userID, func(s *state.Session) (chat.Reply, error) {
		if op == phone.None {
			s.Reset(state.StateIdle)
			return chat.Text(msgUnknownNetwork), nil
		}
		s.Reset(StepAwaitingAmount)
		s.Set(keyKind, kindAirtime)
		s.Set(keyOperator, op.String())
		return chat.Text(msgEnterAmount(f.opts.MinAirtime)), nil
	})
}

// HandleDataCallback handles both "Data_<network>" and plan button presses.
// Plan buttons carry "data_<network>_<n>_<price>_<validity>_<label>" where n
// is the plan's position in the list stored in the session.
func (f *Flow) HandleDataCallback(ctx context.Context, userID int64, payload string) (chat.Reply, error) {
	tokens := callbacks.Tokens(payload, 4)
	if len(tokens) >= 3 {
		return f.selectPlan(ctx, userID, tokens)
	}
	return f.selectDataOperator(ctx, userID, operatorFromPayload(payload))
}

func (f *Flow) selectDataOperator(ctx context.Context, userID int64, op phone.Operator) (chat.Reply, error) {
	return f.conv.Do(ctx, userID, func(s *state.Session) (chat.Reply, error) {
		if op == phone.None {
			s.Reset(state.StateIdle)
			return chat.Text(msgUnknownNetwork), nil
		}
		plans, err := f.vendor.FetchPlans(ctx, op)
		if err != nil || len(plans) == 0 {
			attrs := []slog.Attr{
				slog.Int64("user_id", userID),
				slog.String("operator", op.String()),
				slog.Int("plans", len(plans)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			}
			logger.Warn(ctx, component, "purchase.plans.fail", attrs...)
			s.Reset(state.StateIdle)
			return chat.Text(msgPlansUnavailable), nil
		}

		s.Reset(StepChoosingPlan)
		s.Set(keyKind, kindData)
		s.Set(keyOperator, op.String())
		buttons := make([]keyboard.Button, 0, len(plans))
		for i, p := range plans {
			ref := strconv.Itoa(i + 1)
			raw, err := encodePlan(p)
			if err != nil {
				s.Reset(state.StateIdle)
				return f.fail(ctx, userID, "purchase.plans.encode", err)
			}
			s.Set(planKeyPrefix+ref, raw)
			buttons = append(buttons, keyboard.Button{
				Text: planButtonText(p.Label, p.Price, p.Validity),
				Data: callbacks.Join("data", op.Label(), ref, p.Price.NairaString(), p.Validity, p.Label),
			})
		}
		return chat.Reply{Text: msgChoosePlan(op), Buttons: keyboard.Column(buttons)}, nil
	})
}

// selectPlan trusts only the plan list stored when the keyboard was built;
// the price carried in the button payload is informational.
func (f *Flow) selectPlan(ctx context.Context, userID int64, tokens []string) (chat.Reply, error) {
	op := phone.ParseOperator(tokens[1])
	ref := tokens[2]
	return f.conv.Do(ctx, userID, func(s *state.Session) (chat.Reply, error) {
		if s.State != StepChoosingPlan || phone.ParseOperator(s.Get(keyOperator)) != op {
			s.Reset(state.StateIdle)
			return chat.Text(msgPlanExpired), nil
		}
		plan, ok := decodePlan(s.Get(planKeyPrefix + ref))
		if !ok {
			s.Reset(state.StateIdle)
			return chat.Text(msgPlanExpired), nil
		}
		s.Reset(StepAwaitingPhone)
		s.Set(keyKind, kindData)
		s.Set(keyOperator, op.String())
		s.Set(keyPlanID, plan.ID)
		s.Set(keyPrice, strconv.FormatInt(plan.Price.Kobo(), 10))
		s.Set(keyValidity, plan.Validity)
		s.Set(keyLabel, plan.Label)
		return chat.Text(msgEnterPhone), nil
	})
}

func (f *Flow) useButtons(context.Context, *conversation.Turn) (chat.Reply, error) {
	return chat.Text(msgUseButtons), nil
}

func (f *Flow) enterAmount(ctx context.Context, t *conversation.Turn) (chat.Reply, error) {
	s := t.Session
	amount, err := money.ParseNaira(t.Text)
	if err != nil || amount.Kobo()%money.KoboPerNaira != 0 {
		return chat.Text(msgInvalidAmount), nil
	}
	if amount < f.opts.MinAirtime {
		return chat.Text(msgBelowMinimum(f.opts.MinAirtime)), nil
	}
	user, err := f.ledger.UserByTelegramID(ctx, t.UserID)
	if err != nil {
		s.Reset(state.StateIdle)
		if errors.Is(err, ledger.ErrNotRegistered) {
			return chat.Text(msgNotRegistered), nil
		}
		return f.fail(ctx, t.UserID, "purchase.balance.fail", err)
	}
	if amount > user.Balance {
		s.Reset(state.StateIdle)
		return chat.Text(msgInsufficient(user.Balance)), nil
	}
	s.Set(keyPrice, strconv.FormatInt(amount.Kobo(), 10))
	s.State = StepAwaitingPhone
	return chat.Text(msgEnterPhone), nil
}

func (f *Flow) enterPhone(_ context.Context, t *conversation.Turn) (chat.Reply, error) {
	s := t.Session
	number := phone.Normalize(t.Text)
	got := phone.Classify(number)
	if got == phone.None {
		return chat.Text(msgInvalidPhone), nil
	}
	want := phone.ParseOperator(s.Get(keyOperator))
	if got != want {
		return chat.Text(msgOperatorMismatch(want)), nil
	}
	s.Set(keyPhone, number)
	s.State = StepAwaitingConfirmation

	price := priceOf(s)
	if s.Get(keyKind) == kindData {
		return chat.Text(msgConfirmData(want, s.Get(keyLabel), price, s.Get(keyValidity), number)), nil
	}
	return chat.Text(msgConfirmAirtime(want, price, number)), nil
}

func (f *Flow) confirm(ctx context.Context, t *conversation.Turn) (chat.Reply, error) {
	switch strings.ToLower(strings.TrimSpace(t.Text)) {
	case "yes":
		reply := f.execute(ctx, t.UserID, t.Session)
		t.Session.Reset(state.StateIdle)
		return reply, nil
	case "no":
		t.Session.Reset(state.StateIdle)
		logger.Info(ctx, component, "purchase.cancel",
			slog.Int64("user_id", t.UserID),
			slog.String("outcome", "cancelled"),
		)
		return chat.Text(msgCancelled), nil
	default:
		return chat.Text(msgYesOrNo), nil
	}
}

// execute re-checks the balance, vends, and debits only after a successful vend.
func (f *Flow) execute(ctx context.Context, userID int64, s *state.Session) chat.Reply {
	kind := s.Get(keyKind)
	op := phone.ParseOperator(s.Get(keyOperator))
	price := priceOf(s)
	number := s.Get(keyPhone)
	if op == phone.None || price <= 0 || number == "" {
		logger.Error(ctx, component, "purchase.session.corrupt", slog.Int64("user_id", userID))
		return chat.Text(msgGenericError)
	}

	user, err := f.ledger.UserByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotRegistered) {
			return chat.Text(msgNotRegistered)
		}
		reply, _ := f.fail(ctx, userID, "purchase.balance.fail", err)
		return reply
	}
	if price > user.Balance {
		return chat.Text(msgShortfall(user.Balance, price-user.Balance))
	}

	req := vtu.Request{Operator: op, Type: kind, Phone: number, Value: price.NairaString()}
	if kind == kindData {
		req.Value = s.Get(keyPlanID)
	}
	res, err := f.vendor.TopUp(ctx, req)
	if err != nil {
		return f.vendFailed(ctx, userID, kind, number, err)
	}

	balance, err := f.ledger.Debit(ctx, userID, price)
	if err != nil {
		logger.Error(ctx, component, "purchase.debit.fail",
			slog.Int64("user_id", userID),
			slog.Int64("amount_kobo", price.Kobo()),
			slog.String("request_id", res.RequestID),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, component, "purchase.complete",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
		slog.String("operator", op.String()),
		slog.Int64("amount_kobo", price.Kobo()),
		slog.Int64("balance_kobo", balance.Kobo()),
		slog.String("phone", number),
		slog.String("request_id", res.RequestID),
		slog.String("outcome", "ok"),
	)
	if kind == kindData {
		return chat.Text(msgDataSuccess(number, s.Get(keyLabel)))
	}
	return chat.Text(msgAirtimeSuccess(price, number))
}

func (f *Flow) vendFailed(ctx context.Context, userID int64, kind, number string, err error) chat.Reply {
	logger.Warn(ctx, component, "purchase.vend.fail",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
		slog.String("phone", number),
		slog.String("outcome", "fail"),
		slog.String("err", err.Error()),
	)
	var perr *vtu.ProviderError
	if !errors.As(err, &perr) || perr.Message == "" || f.sensitive(perr.Message) {
		return chat.Text(msgVendFailed(kind))
	}
	return chat.Text(msgVendFailedWith(kind, perr.Message))
}

func (f *Flow) sensitive(msg string) bool {
	for _, pattern := range f.opts.SensitiveErrors {
		if pattern != "" && strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (f *Flow) fail(ctx context.Context, userID int64, event string, err error) (chat.Reply, error) {
	logger.Error(ctx, component, event,
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
	return chat.Text(msgGenericError), nil
}

func operatorFromPayload(payload string) phone.Operator {
	tokens := callbacks.Tokens(payload, 2)
	if len(tokens) < 2 {
		return phone.None
	}
	return phone.ParseOperator(tokens[1])
}

func priceOf(s *state.Session) money.Amount {
	kobo, err := strconv.ParseInt(s.Get(keyPrice), 10, 64)
	if err != nil {
		return 0
	}
	return money.Amount(kobo)
}

// listedPlan is a plan as kept in the session while the user chooses.
type listedPlan struct {
	ID       string `json:"id"`
	Kobo     int64  `json:"kobo"`
	Validity string `json:"validity"`
	Label    string `json:"label"`
}

func encodePlan(p vtu.Plan) (string, error) {
	b, err := json.Marshal(listedPlan{ID: p.ID, Kobo: p.Price.Kobo(), Validity: p.Validity, Label: p.Label})
	return string(b), err
}

func decodePlan(raw string) (vtu.Plan, bool) {
	var lp listedPlan
	if raw == "" || json.Unmarshal([]byte(raw), &lp) != nil || lp.ID == "" || lp.Kobo <= 0 {
		return vtu.Plan{}, false
	}
	return vtu.Plan{ID: lp.ID, Price: money.Amount(lp.Kobo), Validity: lp.Validity, Label: lp.Label}, true
}
