package connectors

import "foxfeed/internal"

type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.InboundMail, error)
}
