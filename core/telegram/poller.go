package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/vtubot/core/config"

	tele "gopkg.in/telebot.v4"
)

// DefaultLongPollTimeout applies when telegram.long_poll_timeout_seconds is unset.
const DefaultLongPollTimeout = 10 * time.Second

// allowedUpdates are the update kinds the routers handle. Telegram drops
// everything else before it reaches the bot.
var allowedUpdates = []string{"message", "callback_query"}

// BuildPoller returns the webhook or long-poll poller selected by
// telegram.run_mode. The config is expected to be normalized.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			SecretToken:    cfg.Webhook.SecretToken,
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}

	timeout := DefaultLongPollTimeout
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout, AllowedUpdates: allowedUpdates}
}
