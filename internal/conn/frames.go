package conn

import (
	"github.com/cristianoliveira/chat-intray/internal/channel"
)

// subscriptionFrame is the client→server subscription handshake.
type subscriptionFrame struct {
	Sender        string             `json:"sender"`
	Subscriptions []subscriptionSpec `json:"subscriptions"`
}

type subscriptionSpec struct {
	Package string              `json:"package"`
	Page    string              `json:"page"`
	Filters subscriptionFilters `json:"filters"`
}

type subscriptionFilters struct {
	Values subscriptionValues `json:"values"`
}

type subscriptionValues struct {
	Channel []string `json:"channel"`
}

// buildSubscriptionFrame names the normalized channel IDs the client wants
// to receive messages for.
func buildSubscriptionFrame(pkg, page string, channels []string) subscriptionFrame {
	return subscriptionFrame{
		Sender: "client",
		Subscriptions: []subscriptionSpec{
			{
				Package: pkg,
				Page:    page,
				Filters: subscriptionFilters{
					Values: subscriptionValues{Channel: channel.NormalizeAll(channels)},
				},
			},
		},
	}
}

// messageFrame is the client→server outbound chat message.
type messageFrame struct {
	Package string       `json:"package"`
	Page    string       `json:"page"`
	Cmd     []messageCmd `json:"cmd"`
}

// messageCmd nests the add command under the configured namespace.
type messageCmd map[string]messageBody

type messageBody struct {
	Message messageAdd `json:"message"`
}

type messageAdd struct {
	Add addPayload `json:"add"`
}

type addPayload struct {
	ChannelID int    `json:"channelid"`
	Title     string `json:"title"`
	Details   string `json:"details"`
	EndDateTS int64  `json:"enddatets"`
	SentBy    string `json:"sentby"`
}

// buildMessageFrame embeds the normalized channel ID, message title and
// body, the end-of-life marker, and the sender's account API key.
func buildMessageFrame(pkg, namespace, channelID, title, details, accountAPIKey string) messageFrame {
	return messageFrame{
		Package: pkg,
		Page:    "message",
		Cmd: []messageCmd{
			{
				namespace: messageBody{
					Message: messageAdd{
						Add: addPayload{
							ChannelID: channel.ToInt(channelID),
							Title:     title,
							Details:   details,
							EndDateTS: 0,
							SentBy:    accountAPIKey,
						},
					},
				},
			},
		},
	}
}

// inboundEnvelope carries the discriminant for inbound frame routing.
type inboundEnvelope struct {
	Type string `json:"type"`
}
