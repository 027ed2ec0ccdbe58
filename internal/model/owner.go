package model

import "time"

// Owner is a raw ingested owner row from the candidate pool. It is
// read-only input to resolution; canonical people live in Contact.
// SecondOwner carries the owner-2 field as a single free-text name.
type Owner struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	SecondOwner    string    `json:"second_owner,omitempty"`
	MailingAddress string    `json:"mailing_address"`
	MailingCity    string    `json:"mailing_city"`
	MailingState   string    `json:"mailing_state"`
	MailingZip     string    `json:"mailing_zip"`
	CreatedAt      time.Time `json:"created_at"`
}
