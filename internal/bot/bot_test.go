package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/chat"
	"github.com/m3rciful/vtubot/internal/conversation"
	"github.com/m3rciful/vtubot/internal/ledger"
	"github.com/m3rciful/vtubot/internal/ledger/ledgertest"
	"github.com/m3rciful/vtubot/internal/money"
)

type stubPurchases struct{ started string }

func (s *stubPurchases) StartAirtime(context.Context, int64) (chat.Reply, error) {
	s.started = "airtime"
	return chat.Text("pick airtime"), nil
}

func (s *stubPurchases) StartData(context.Context, int64) (chat.Reply, error) {
	s.started = "data"
	return chat.Text("pick data"), nil
}

func (s *stubPurchases) SelectAirtimeOperator(_ context.Context, _ int64, payload string) (chat.Reply, error) {
	return chat.Text(payload), nil
}

func (s *stubPurchases) HandleDataCallback(_ context.Context, _ int64, payload string) (chat.Reply, error) {
	return chat.Text(payload), nil
}

type stubFunding struct{ ref string }

func (s *stubFunding) Start(context.Context, int64, string) (chat.Reply, error) {
	return chat.Text("amount?"), nil
}

func (s *stubFunding) Verify(_ context.Context, _ int64, ref string) (chat.Reply, error) {
	s.ref = ref
	return chat.Text("verified"), nil
}

func newBot(t *testing.T) (*Bot, *ledgertest.Store, *conversation.Engine) {
	t.Helper()
	mem := ledgertest.New()
	conv := conversation.New(state.NewMemoryStore(state.DefaultTTL), nil)
	b := New(Deps{
		Wallet:        ledger.New(mem, mem, ""),
		Purchases:     &stubPurchases{},
		Funding:       &stubFunding{},
		Conversations: conv,
	})
	return b, mem, conv
}

func TestRegistryContents(t *testing.T) {
	b, _, _ := newBot(t)

	var names []string
	for _, c := range b.Registry().ListCommands(true) {
		names = append(names, c.Text)
	}
	assert.Equal(t, []string{"/airtime", "/balance", "/cancel", "/data", "/fund", "/help", "/start", "/verify"}, names)
	assert.Equal(t, []string{"airtime", "data"}, b.Registry().ListCallbacks())
	assert.NotNil(t, b.Registry().TextFallback())
	assert.NotEmpty(t, b.Routes())
}

func TestStartRegistersAndBalance(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newBot(t)

	reply, err := b.balance(ctx, input{userID: 5})
	require.NoError(t, err)
	assert.Equal(t, msgNotRegistered, reply.Text)

	reply, err = b.start(ctx, input{userID: 5})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Welcome to the VTU Bot, Anonymous!")

	mem.Seed(5, "Anonymous", money.Amount(123450))
	reply, err = b.balance(ctx, input{userID: 5})
	require.NoError(t, err)
	assert.Equal(t, "💰 Your wallet balance is ₦1,234.50", reply.Text)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	b, _, conv := newBot(t)

	reply, err := b.cancel(ctx, input{userID: 1})
	require.NoError(t, err)
	assert.Equal(t, msgNothingToCancel, reply.Text)

	_, err = conv.Do(ctx, 1, func(s *state.Session) (chat.Reply, error) {
		s.Reset("awaiting_amount")
		return chat.Reply{}, nil
	})
	require.NoError(t, err)
	assert.True(t, b.InProgress(ctx, 1))

	reply, err = b.cancel(ctx, input{userID: 1})
	require.NoError(t, err)
	assert.Equal(t, msgCancelled, reply.Text)
	assert.False(t, b.InProgress(ctx, 1))
}

func TestVerifyPassesPayload(t *testing.T) {
	b, _, _ := newBot(t)
	f := b.deps.Funding.(*stubFunding)

	_, err := b.verify(context.Background(), input{userID: 1, payload: "ref-9"})
	require.NoError(t, err)
	assert.Equal(t, "ref-9", f.ref)
}

func TestHelpMentionsSupport(t *testing.T) {
	b, _, _ := newBot(t)
	reply, err := b.help(context.Background(), input{})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, DefaultSupportLink)
	assert.Contains(t, reply.Text, "/verify <reference>")
}
