package test

import (
	"strings"

	pkgAuth "github.com/polkiloo/artshop/internal/pkg/auth"
)

// StrategyStub issues "receipt:<number>" tokens and parses them back.
type StrategyStub struct {
	IssueFn func(string) (string, error)
	ParseFn func(string) (string, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(orderNumber string) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(orderNumber)
	}
	return "receipt:" + orderNumber, nil
}

// ParseToken parses tokens produced by IssueToken.
func (s StrategyStub) ParseToken(token string) (string, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	number, ok := strings.CutPrefix(token, "receipt:")
	if !ok || number == "" {
		return "", pkgAuth.ErrInvalidToken
	}
	return number, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// ReceiptParserStub implements the receipt middleware contract.
type ReceiptParserStub struct {
	Number  string
	Err     error
	ParseFn func(string) (string, error)
}

// ParseReceipt either delegates to override or returns predefined result.
func (s ReceiptParserStub) ParseReceipt(token string) (string, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Number, nil
}

var _ pkgAuth.Strategy = StrategyStub{}
