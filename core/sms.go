package core

import "context"

type (
	// SMSMessage is a single templated text sent to a batch of recipients.
	SMSMessage struct {
		Body       string
		Recipients []string // PH mobile numbers
	}

	// SMSResult is the gateway's acknowledgement of an accepted batch.
	SMSResult struct {
		MessageID string
	}

	// SMSGatewayConfig is an injected snapshot of the active gateway credentials.
	SMSGatewayConfig struct {
		URL      string
		Username string
		Password string
		Sender   string
	}

	// SMSService is any service that can deliver text messages.
	SMSService interface {
		Send(ctx context.Context, msg SMSMessage) (SMSResult, error)
		// DeliveryStatus looks up the delivery state of a previously accepted batch.
		DeliveryStatus(ctx context.Context, messageID string) (string, error)
	}
)

func (m SMSMessage) HasRecipients() bool { return len(m.Recipients) > 0 }
