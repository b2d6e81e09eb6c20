package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/vtubot/core/telegram/netutil"
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Response timeouts leave room for getUpdates long polling (up to 60s).
func BuildHTTPClient() *http.Client {
	return netutil.NewClient(netutil.ClientOptions{
		Timeout:         90 * time.Second,
		ResponseTimeout: 70 * time.Second,
		Retries:         3,
		Backoff:         2 * time.Second,
	})
}
