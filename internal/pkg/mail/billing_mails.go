package mail

import (
	"fmt"

	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
)

// SendProWelcome mails a new pro subscriber after the first successful
// checkout. Callers fire this only when the webhook flipped the pro flag,
// never on re-deliveries.
func SendProWelcome(to, plan string) error {
	appName := env.GetEnv("APP_NAME", "TipMaster")
	subject := fmt.Sprintf("Welcome to %s Pro", appName)
	body := fmt.Sprintf(
		"<h2>Your %s Pro subscription is active</h2>"+
			"<p>Plan: %s</p>"+
			"<p>Advanced split mode and larger party sizes are unlocked for your account.</p>"+
			"<p>Thanks for supporting %s!</p>",
		appName, plan, appName,
	)
	return SendMail(to, subject, body)
}

// SendSubscriptionEnded notifies a subscriber whose plan was canceled or
// refunded.
func SendSubscriptionEnded(to string) error {
	appName := env.GetEnv("APP_NAME", "TipMaster")
	subject := fmt.Sprintf("Your %s Pro subscription has ended", appName)
	body := fmt.Sprintf(
		"<h2>Your %s Pro subscription has ended</h2>"+
			"<p>Your account is back on the free plan. You can resubscribe at any time.</p>",
		appName,
	)
	return SendMail(to, subject, body)
}
