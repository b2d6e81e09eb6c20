package bot

import "fmt"

const (
	msgNotRegistered   = "⚠️ You are not registered. Please use /start to register."
	msgGenericError    = "❌ An error occurred while processing your request."
	msgUnknownText     = "🤔 I didn't understand that. Send /help to see what I can do."
	msgNothingToCancel = "There is nothing to cancel."
	msgCancelled       = "❌ Cancelled. Start again any time from the menu."
	msgSlowDown        = "⏳ You're going too fast. Please wait a moment and try again."
)

func welcomeText(username string) string {
	return fmt.Sprintf("👋 Welcome to the VTU Bot, %s!\n\n"+
		"Here are some commands to get started:\n\n"+
		"💳 /fund - Fund your wallet\n\n"+
		"📊 /balance - Check your wallet balance\n\n"+
		"📱 /airtime - Purchase airtime\n\n"+
		"📱 /data - Purchase data\n\n"+
		"ℹ️ /help - Get assistance", username)
}

func helpText(support string) string {
	return "ℹ️ How to Use the VTU Bot:\n\n" +
		"💳 Fund Wallet:\n" +
		"Use /fund to add money to your wallet.\n\n" +
		"📊 Check Balance:\n" +
		"Use /balance to view your wallet balance.\n\n" +
		"📱 Buy Airtime/Data:\n" +
		"Use /airtime to purchase airtime or /data for data purchase on any network.\n\n" +
		"💰 Verify funding:\n" +
		"Use /verify <reference> to verify your account funding.\n\n" +
		"🚫 Changed your mind? /cancel stops the current purchase.\n\n" +
		"🔗 Need more help? Contact support (" + support + ")."
}
