package auth

import "time"

// Strategy issues and parses receipt tokens. A receipt grants read access
// to the status of a single order.
type Strategy interface {
	IssueToken(orderNumber string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
