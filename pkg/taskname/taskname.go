package taskname

const (
	// WebhookDeliver fans a control-plane event out to every subscribed endpoint.
	WebhookDeliver = "webhook:deliver"
	// WebhookPing sends a synthetic test event to a single endpoint.
	WebhookPing = "webhook:ping"
)
