package constants

// Static route constants
const (
	PublicRoute   = "/"
	APIV1Route    = "/api/v1"
	WebhookRoute  = "/webhooks/creem"
	CallbackRoute = "/payment/callback"
)
