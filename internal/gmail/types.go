package gmail

// MessageSummary is the inbox-list view of a message: identity, the three
// headers the dashboard renders, and the provider's snippet. It is derived
// from remote state on every request and never cached.
type MessageSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// MessageDetail is the single-message view: the same headers plus a one-shot
// best-effort text decode of the message body.
type MessageDetail struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Body    string `json:"body"`
}
