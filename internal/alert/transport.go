package alert

import "context"

// Transport delivers one event. Errors are reported per message and never
// retried.
type Transport interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Messenger sends a text message to a chat or user.
type Messenger interface {
	Send(ctx context.Context, targetID, text string) error
}

// Mailer sends an HTML email to its configured recipient.
type Mailer interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

type MessengerTransport struct {
	Messenger Messenger
	TargetID  string
}

func (t MessengerTransport) Name() string { return "messenger" }

func (t MessengerTransport) Send(ctx context.Context, e Event) error {
	return t.Messenger.Send(ctx, t.TargetID, RenderText(e))
}

type MailTransport struct {
	Mailer Mailer
}

func (t MailTransport) Name() string { return "email" }

func (t MailTransport) Send(ctx context.Context, e Event) error {
	return t.Mailer.Send(ctx, RenderSubject(e), RenderHTML(e))
}

// TransportFunc adapts a function into a Transport.
type TransportFunc struct {
	ID string
	Fn func(ctx context.Context, e Event) error
}

func (t TransportFunc) Name() string                            { return t.ID }
func (t TransportFunc) Send(ctx context.Context, e Event) error { return t.Fn(ctx, e) }
