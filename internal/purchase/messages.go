package purchase

import (
	"fmt"

	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/phone"
)

const (
	msgNotRegistered    = "⚠️ You are not registered. Please use /start to register."
	msgChooseAirtimeOp  = "📡 Choose your network provider for airtime purchase:"
	msgChooseDataOp     = "📡 Please select your network operator for data purchase:"
	msgUseButtons       = "👆 Please use the buttons above to make a selection, or /cancel to stop."
	msgUnknownNetwork   = "❌ Unknown network. Please start again."
	msgInvalidAmount    = "❌ Invalid amount. Please try again."
	msgEnterPhone       = "📞 Enter the phone number to recharge."
	msgInvalidPhone     = "❌ Invalid phone number. Please enter a valid one."
	msgYesOrNo          = "Please reply 'yes' or 'no' to confirm or cancel."
	msgCancelled        = "❌ Purchase cancelled."
	msgPlansUnavailable = "Sorry, I couldn't fetch data plans. Please try again later."
	msgPlanExpired      = "⚠️ That plan list has expired. Please use /data to start again."
	msgGenericError     = "❌ An error occurred while processing your request."
)

func msgEnterAmount(min money.Amount) string {
	return fmt.Sprintf("💵 Enter the amount for airtime (e.g., 500 from %s upwards).", min.NairaString())
}

func msgBelowMinimum(min money.Amount) string {
	return fmt.Sprintf("❌ The minimum airtime amount is %s. Please enter a higher amount.", min)
}

func msgInsufficient(balance money.Amount) string {
	return fmt.Sprintf("❌ Insufficient balance (%s). Please fund your wallet.", balance)
}

func msgShortfall(balance, missing money.Amount) string {
	return fmt.Sprintf("❌ Insufficient balance (%s). You need %s more. Please fund your wallet.", balance, missing)
}

func msgOperatorMismatch(op phone.Operator) string {
	return fmt.Sprintf("❌ Phone number does not match the selected operator. Please enter a valid %s number.", op.Label())
}

func msgChoosePlan(op phone.Operator) string {
	return fmt.Sprintf("Please choose a data plan for %s:", op.Label())
}

func planButtonText(label string, price money.Amount, validity string) string {
	return fmt.Sprintf("%s - %s (%s days)", label, price, validity)
}

func msgConfirmAirtime(op phone.Operator, amount money.Amount, number string) string {
	return fmt.Sprintf("🛒 Confirm your airtime purchase:\n\n"+
		"Network: %s\n"+
		"Amount: %s\n"+
		"Phone: %s (MAKE SURE THIS IS CORRECT)\n\n"+
		"Reply with \"yes\" to confirm or \"no\" to cancel.", op.Label(), amount, number)
}

func msgConfirmData(op phone.Operator, label string, price money.Amount, validity, number string) string {
	return fmt.Sprintf("🛒 Confirm your data purchase:\n\n"+
		"Network: %s\n"+
		"Plan: %s\n"+
		"Price: %s\n"+
		"Validity: %s days\n"+
		"Phone: %s\n\n"+
		"Confirm? Reply 'yes' or 'no'.", op.Label(), label, price, validity, number)
}

func msgAirtimeSuccess(amount money.Amount, number string) string {
	return fmt.Sprintf("✅ Airtime purchase successful! %s sent to %s.", amount, number)
}

func msgDataSuccess(number, label string) string {
	return fmt.Sprintf("🎉 Purchase successful! Phone %s recharged with %s.", number, label)
}

func msgVendFailed(kind string) string {
	return fmt.Sprintf("⚠️ %s purchase failed. Please try again or contact support.", kindTitle(kind))
}

func msgVendFailedWith(kind, reason string) string {
	return fmt.Sprintf("⚠️ %s purchase failed: %s", kindTitle(kind), reason)
}

func kindTitle(kind string) string {
	if kind == kindData {
		return "Data"
	}
	return "Airtime"
}
