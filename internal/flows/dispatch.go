package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Channel names used in outcomes.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Per-recipient error reasons.
const (
	ReasonUnauthorized     = "unauthorized"
	ReasonInvalidPhone     = "invalid_phone"
	ReasonTimeout          = "timeout"
	ReasonMissingReference = "missing_provider_reference"
	ReasonTransportPrefix  = "transport: "
)

const (
	defaultDispatchWorkers   = 4
	defaultDispatchStepLimit = 10 * time.Second
)

// DispatchContact is the flow-local view of a support contact.
type DispatchContact struct {
	ID     string
	Name   string
	Phone  string
	Email  string
	Active bool
}

// DispatchRequest is one delivery batch.
type DispatchRequest struct {
	SenderUserID string
	SenderName   string
	Message      string
	Subject      string
	Contacts     []DispatchContact
}

// DispatchOutcome is the result of one (contact, channel) attempt.
type DispatchOutcome struct {
	ContactID         string
	Channel           string
	Success           bool
	ProviderReference string
	ErrorReason       string
}

// DispatchResult aggregates a batch.
type DispatchResult struct {
	Success          bool
	ContactsNotified int
	TotalContacts    int
	Results          []DispatchOutcome
	SanitizedMessage string
	Suspicious       bool
}

// MessageCheck is the authoritative validator verdict for a batch message.
type MessageCheck struct {
	Valid      bool
	Suspicious bool
	Sanitized  string
	Reasons    []string
}

// SendRequest is what a channel sender receives for one recipient.
type SendRequest struct {
	ContactID string
	To        string
	Subject   string
	Body      string
}

// Sender delivers one message and returns the provider's reference id.
type Sender func(ctx context.Context, req SendRequest) (string, error)

// DispatchMetrics carries metric IDs needed by the dispatch flow.
type DispatchMetrics struct {
	ValidationRejected int
	SuspiciousInput    int
	RateLimited        int
	OwnershipRejected  int
	DeliverySuccess    int
	DeliveryFailure    int
}

// DispatchErrors carries host-level sentinel errors used by the dispatch flow.
type DispatchErrors struct {
	Validation      error
	SuspiciousInput error
	BatchTooLarge   error
	NotConfigured   error
}

// DispatchDeps captures dispatch dependencies.
type DispatchDeps struct {
	MaxContacts      int
	Workers          int
	StepTimeout      time.Duration
	RejectSuspicious bool

	// ValidateMessage runs once per batch, before any rate-limit unit is spent.
	ValidateMessage func(ctx context.Context, userID, message string) (MessageCheck, error)
	// ValidateSenderName checks the display name appended to the body. Its
	// verdict joins the message verdict; Sanitized replaces the name.
	ValidateSenderName func(name string) MessageCheck
	// LoadNetwork returns the sender's stored active contacts. Request
	// contacts are resolved against it and only stored addresses are used.
	LoadNetwork func(ctx context.Context, userID string) ([]DispatchContact, error)
	// CheckRateLimit consumes one unit per batch. Any error aborts the batch.
	CheckRateLimit  func(ctx context.Context, userID string) error
	VerifyOwnership func(ctx context.Context, userID, phone string) (bool, error)
	NormalizePhone  func(phone string) (string, bool)
	FormatBody      func(message, senderName string) string

	SendSMS   Sender
	SendEmail Sender

	OnSuspicious        func(ctx context.Context, userID string, reasons []string)
	OnOwnershipRejected func(ctx context.Context, userID, contactID string, err error)
	OnTransportError    func(ctx context.Context, contactID, channel string, err error)
	MetricInc           func(id int)

	Tracer  trace.Tracer
	Metrics DispatchMetrics
	Errors  DispatchErrors
}

// RunDispatch validates and rate-limits the batch once, then attempts every
// active contact independently on a bounded worker pool. Per-contact failures
// are reported in the result, never returned as an error.
func RunDispatch(ctx context.Context, req DispatchRequest, deps DispatchDeps) (DispatchResult, error) {
	inc := deps.MetricInc
	if inc == nil {
		inc = func(int) {}
	}

	// Received: configuration and batch shape fail before any side effect.
	if deps.SendSMS == nil {
		return DispatchResult{}, deps.Errors.NotConfigured
	}
	if deps.MaxContacts > 0 && len(req.Contacts) > deps.MaxContacts {
		inc(deps.Metrics.ValidationRejected)
		return DispatchResult{}, deps.Errors.BatchTooLarge
	}

	// Validating
	stepCtx, cancel := stepContext(ctx, deps.StepTimeout)
	check, err := deps.ValidateMessage(stepCtx, req.SenderUserID, req.Message)
	cancel()
	if err != nil {
		inc(deps.Metrics.ValidationRejected)
		return DispatchResult{}, err
	}
	senderName := req.SenderName
	if deps.ValidateSenderName != nil && senderName != "" {
		name := deps.ValidateSenderName(senderName)
		check.Valid = check.Valid && name.Valid
		check.Suspicious = check.Suspicious || name.Suspicious
		for _, r := range name.Reasons {
			check.Reasons = append(check.Reasons, "sender_name_"+r)
		}
		senderName = name.Sanitized
	}
	if check.Suspicious {
		inc(deps.Metrics.SuspiciousInput)
		if deps.OnSuspicious != nil {
			deps.OnSuspicious(ctx, req.SenderUserID, check.Reasons)
		}
		if deps.RejectSuspicious {
			return DispatchResult{Suspicious: true}, deps.Errors.SuspiciousInput
		}
	}
	if !check.Valid {
		inc(deps.Metrics.ValidationRejected)
		return DispatchResult{Suspicious: check.Suspicious}, validationError(deps.Errors.Validation, check.Reasons)
	}

	var network *contactIndex
	if deps.LoadNetwork != nil {
		stepCtx, cancel = stepContext(ctx, deps.StepTimeout)
		stored, err := deps.LoadNetwork(stepCtx, req.SenderUserID)
		cancel()
		if err != nil {
			return DispatchResult{SanitizedMessage: check.Sanitized, Suspicious: check.Suspicious}, err
		}
		network = newContactIndex(stored, deps.NormalizePhone)
	}

	// RateLimitChecked
	stepCtx, cancel = stepContext(ctx, deps.StepTimeout)
	err = deps.CheckRateLimit(stepCtx, req.SenderUserID)
	cancel()
	if err != nil {
		inc(deps.Metrics.RateLimited)
		return DispatchResult{SanitizedMessage: check.Sanitized, Suspicious: check.Suspicious}, err
	}

	body := check.Sanitized
	if deps.FormatBody != nil {
		body = deps.FormatBody(check.Sanitized, senderName)
	}

	active := make([]DispatchContact, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		if c.Active {
			active = append(active, c)
		}
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	perContact := make([][]DispatchOutcome, len(active))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, c := range active {
		g.Go(func() error {
			cctx, span := tracer.Start(ctx, "goalert.dispatch.contact",
				trace.WithAttributes(attribute.String("contact.id", c.ID)))
			perContact[i] = deliverContact(cctx, req, c, network, body, deps, inc)
			for _, o := range perContact[i] {
				if !o.Success {
					span.SetStatus(codes.Error, o.ErrorReason)
				}
			}
			span.End()
			return nil
		})
	}
	_ = g.Wait()

	// Aggregated
	res := DispatchResult{
		Success:          true,
		TotalContacts:    len(active),
		SanitizedMessage: check.Sanitized,
		Suspicious:       check.Suspicious,
	}
	for _, outcomes := range perContact {
		notified := false
		for _, o := range outcomes {
			res.Results = append(res.Results, o)
			if o.Success {
				notified = true
			}
		}
		if notified {
			res.ContactsNotified++
		}
	}
	return res, nil
}

func deliverContact(ctx context.Context, req DispatchRequest, c DispatchContact, network *contactIndex, body string, deps DispatchDeps, inc func(int)) []DispatchOutcome {
	if network != nil {
		stored, ok := network.resolve(c)
		if !ok {
			return rejectOwnership(ctx, req, c, nil, deps, inc)
		}
		c = stored
	}

	phone := c.Phone
	if deps.NormalizePhone != nil {
		clean, ok := deps.NormalizePhone(c.Phone)
		if !ok {
			inc(deps.Metrics.DeliveryFailure)
			return []DispatchOutcome{{ContactID: c.ID, Channel: ChannelSMS, ErrorReason: ReasonInvalidPhone}}
		}
		phone = clean
	}

	// OwnershipVerified, re-checked at send time.
	stepCtx, cancel := stepContext(ctx, deps.StepTimeout)
	owned, err := deps.VerifyOwnership(stepCtx, req.SenderUserID, phone)
	cancel()
	if err != nil || !owned {
		return rejectOwnership(ctx, req, c, err, deps, inc)
	}

	outcomes := []DispatchOutcome{
		send(ctx, deps, inc, deps.SendSMS, ChannelSMS, SendRequest{ContactID: c.ID, To: phone, Body: body}),
	}
	if c.Email != "" && deps.SendEmail != nil {
		outcomes = append(outcomes, send(ctx, deps, inc, deps.SendEmail, ChannelEmail, SendRequest{
			ContactID: c.ID,
			To:        c.Email,
			Subject:   req.Subject,
			Body:      body,
		}))
	}
	return outcomes
}

func rejectOwnership(ctx context.Context, req DispatchRequest, c DispatchContact, err error, deps DispatchDeps, inc func(int)) []DispatchOutcome {
	inc(deps.Metrics.OwnershipRejected)
	if deps.OnOwnershipRejected != nil {
		deps.OnOwnershipRejected(ctx, req.SenderUserID, c.ID, err)
	}
	return []DispatchOutcome{{ContactID: c.ID, Channel: ChannelSMS, ErrorReason: ReasonUnauthorized}}
}

// contactIndex looks request contacts up in the stored network, by id or,
// for id-less contacts, by normalized phone.
type contactIndex struct {
	byID      map[string]DispatchContact
	byPhone   map[string]DispatchContact
	normalize func(string) (string, bool)
}

func newContactIndex(stored []DispatchContact, normalize func(string) (string, bool)) *contactIndex {
	ix := &contactIndex{
		byID:      make(map[string]DispatchContact, len(stored)),
		byPhone:   make(map[string]DispatchContact, len(stored)),
		normalize: normalize,
	}
	for _, c := range stored {
		if !c.Active {
			continue
		}
		ix.byID[c.ID] = c
		ix.byPhone[ix.phoneKey(c.Phone)] = c
	}
	return ix
}

func (ix *contactIndex) phoneKey(phone string) string {
	if ix.normalize != nil {
		if clean, ok := ix.normalize(phone); ok {
			return clean
		}
	}
	return phone
}

func (ix *contactIndex) resolve(c DispatchContact) (DispatchContact, bool) {
	if c.ID != "" {
		stored, ok := ix.byID[c.ID]
		return stored, ok
	}
	if c.Phone == "" {
		return DispatchContact{}, false
	}
	stored, ok := ix.byPhone[ix.phoneKey(c.Phone)]
	return stored, ok
}

func send(ctx context.Context, deps DispatchDeps, inc func(int), sender Sender, channel string, sr SendRequest) DispatchOutcome {
	out := DispatchOutcome{ContactID: sr.ContactID, Channel: channel}

	stepCtx, cancel := stepContext(ctx, deps.StepTimeout)
	ref, err := callSender(stepCtx, sender, sr)
	cancel()

	switch {
	case err != nil:
		out.ErrorReason = transportReason(err)
		if deps.OnTransportError != nil {
			deps.OnTransportError(ctx, sr.ContactID, channel, err)
		}
	case ref == "":
		out.ErrorReason = ReasonMissingReference
	default:
		out.Success = true
		out.ProviderReference = ref
	}

	if out.Success {
		inc(deps.Metrics.DeliverySuccess)
	} else {
		inc(deps.Metrics.DeliveryFailure)
	}
	return out
}

// callSender converts a sender panic into a per-contact failure.
func callSender(ctx context.Context, sender Sender, sr SendRequest) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("sender panic")
		}
	}()
	return sender(ctx, sr)
}

func transportReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonTimeout
	}
	return ReasonTransportPrefix + err.Error()
}

func stepContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultDispatchStepLimit
	}
	return context.WithTimeout(ctx, d)
}

type reasonsError struct {
	base    error
	reasons []string
}

func (e *reasonsError) Error() string {
	if len(e.reasons) == 0 {
		return e.base.Error()
	}
	return e.base.Error() + ": " + strings.Join(e.reasons, ", ")
}

func (e *reasonsError) Unwrap() error { return e.base }

func validationError(base error, reasons []string) error {
	if base == nil {
		base = errors.New("validation failed")
	}
	return &reasonsError{base: base, reasons: reasons}
}
