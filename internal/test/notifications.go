package test

import (
	"context"
	"sync"

	"github.com/polkiloo/artshop/internal/adapter/events"
	"github.com/polkiloo/artshop/internal/adapter/mailer"
)

// MailSenderStub records messages.
type MailSenderStub struct {
	Err error

	mu   sync.Mutex
	sent []mailer.Message
}

// Send records message or returns configured error.
func (s *MailSenderStub) Send(_ context.Context, msg mailer.Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns recorded messages.
func (s *MailSenderStub) Sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

// PublisherStub records events.
type PublisherStub struct {
	Err error

	mu        sync.Mutex
	published []events.OrderEvent
	closed    bool
}

// Publish records event or returns configured error.
func (p *PublisherStub) Publish(_ context.Context, event events.OrderEvent) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

// Close marks publisher closed.
func (p *PublisherStub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Published returns recorded events.
func (p *PublisherStub) Published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.published...)
}

var (
	_ mailer.Sender    = (*MailSenderStub)(nil)
	_ events.Publisher = (*PublisherStub)(nil)
)
