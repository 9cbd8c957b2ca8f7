package entity

import "fmt"

const (
	DefaultEmailSender  = `"⏱ Timeless Music" <tickets@timelessmusic.com>`
	TicketEmailSubject  = "🎟 Your Timeless Music ticket"
	ticketEmailTemplate = `Hey %s,
you are going back in time to enjoy one of the greatest concerts in the history of music! 🤘

This is the secret code that will give you access to our time travel collection point:

---
%s
---

Be sure to show it to our staff at entrance.

We already look forward (or maybe backward) to having you there, it's going to be epic!

— Your friendly Timeless Music staff

PS: remember that is forbidden to place bets or do any other action that might substantially
increase your net worth while time travelling. Travel safe!`
)

type TicketEmail struct {
	From    string
	To      string
	Subject string
	Body    string
}

func NewTicketEmail(from string, record PurchaseRecord) TicketEmail {
	if from == "" {
		from = DefaultEmailSender
	}

	return TicketEmail{
		From:    from,
		To:      record.Email,
		Subject: TicketEmailSubject,
		Body:    fmt.Sprintf(ticketEmailTemplate, record.Name, record.TicketID),
	}
}
