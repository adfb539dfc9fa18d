package models

import (
	"fmt"
	"time"
)

// Client represents a registered customer of the delivery service.
// The code is issued once by the sequence allocator and never changes;
// full name and phone may be corrected later by an administrator.
type Client struct {
	ChatID   int64     `json:"chat_id"`   // ChatID is the Telegram chat identifier of the customer.
	Code     int       `json:"code"`      // Code is the sequential client code issued at registration.
	FullName string    `json:"full_name"` // FullName is the customer's full name.
	Phone    string    `json:"phone"`     // Phone is the customer's contact phone number.
	RegDate  time.Time `json:"reg_date"`  // RegDate is the registration timestamp.
}

// DisplayCode formats the numeric client code the way it is printed on
// parcels and shown to customers, e.g. "TE-5001".
func (c Client) DisplayCode() string {
	return fmt.Sprintf("TE-%04d", c.Code)
}
