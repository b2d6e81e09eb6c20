package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vtubot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("balance", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/fund", commands.Command{Handler: noop})
	reg.RegisterCommand("/help", commands.Command{Description: "x"})
	assert.Empty(t, reg.Commands())

	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "first"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "second"})
	require.Len(t, reg.Commands(), 1)
	assert.Equal(t, "first", reg.Commands()["/start"].Description)
}

func TestListCommandsSortedAndHidesHidden(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/verify", commands.Command{Handler: noop, Description: "v"})
	reg.RegisterCommand("/airtime", commands.Command{Handler: noop, Description: "a"})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "d", Hidden: true})

	assert.Equal(t, []tele.Command{
		{Text: "/airtime", Description: "a"},
		{Text: "/verify", Description: "v"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestLookupCommandByNameAndAlias(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/balance", commands.Command{Handler: noop, Description: "b", Aliases: []string{"wallet", "/bal"}})

	for _, text := range []string{"/balance", "balance", " /balance ", "wallet", "/wallet", "bal"} {
		key, _, ok := reg.LookupCommand(text)
		assert.True(t, ok, text)
		assert.Equal(t, "/balance", key, text)
	}
	_, _, ok := reg.LookupCommand("hello")
	assert.False(t, ok)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("data", noop))
	require.NoError(t, reg.RegisterCallback("airtime", noop))
	assert.Error(t, reg.RegisterCallback("data", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Error(t, reg.RegisterCallback("fund", nil))

	assert.Equal(t, []string{"airtime", "data"}, reg.ListCallbacks())
	_, ok := reg.GetCallback("data")
	assert.True(t, ok)
	_, ok = reg.GetCallback("fund")
	assert.False(t, ok)
	assert.NotNil(t, reg.CallbackNotFound())
}
