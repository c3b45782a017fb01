package goAlert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAlert/notify"
)

func TestCrisisAlertEmptyNetworkMakesNoTransportCalls(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	_, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"})
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if got := te.sms.Calls(); got != 0 {
		t.Fatalf("expected no transport calls, got %d", got)
	}

	te.Close()
	entries := te.sink.byType(auditEventCrisisAlert)
	if len(entries) != 2 {
		t.Fatalf("expected pending + summary entries, got %d", len(entries))
	}
	if entries[0].Outcome != OutcomePending {
		t.Fatalf("expected first entry PENDING, got %s", entries[0].Outcome)
	}
	if entries[1].Outcome != OutcomeFailure || entries[1].ErrorMessage != string(auditErrNoRecipients) {
		t.Fatalf("unexpected summary entry %+v", entries[1])
	}
}

func TestCrisisAlertFourthWithinWindowIsRateLimited(t *testing.T) {
	te := buildTestEngine(t, testConfig(), contact("c1", "u1", "555-010-0001"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := te.SendCrisisAlert(ctx, CrisisAlertRequest{SenderUserID: "u1"})
		if err != nil {
			t.Fatalf("alert %d: unexpected error %v", i+1, err)
		}
		if !res.Delivered() {
			t.Fatalf("alert %d: expected delivery", i+1)
		}
		te.clock.Advance(30 * time.Second)
	}

	_, err := te.SendCrisisAlert(ctx, CrisisAlertRequest{SenderUserID: "u1"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := te.sms.Calls(); got != 3 {
		t.Fatalf("expected 3 transport calls, got %d", got)
	}

	// The oldest alert leaves the window five minutes after it was sent.
	te.clock.Advance(5*time.Minute - 90*time.Second)
	if _, err := te.SendCrisisAlert(ctx, CrisisAlertRequest{SenderUserID: "u1"}); err != nil {
		t.Fatalf("expected alert after window to pass, got %v", err)
	}

	te.Close()
	var summaries []AuditLogEntry
	for _, e := range te.sink.byType(auditEventCrisisAlert) {
		if e.Outcome != OutcomePending {
			summaries = append(summaries, e)
		}
	}
	if len(summaries) != 5 {
		t.Fatalf("expected 5 summary entries, got %d", len(summaries))
	}
	limited := summaries[3]
	if limited.Outcome != OutcomeFailure || limited.ErrorMessage != string(auditErrRateLimited) {
		t.Fatalf("expected rate-limited audit entry for 4th alert, got %+v", limited)
	}
	if got := te.MetricsSnapshot().Counters[MetricRateLimited]; got != 1 {
		t.Fatalf("expected MetricRateLimited=1, got %d", got)
	}
	triggered := te.sink.byType(auditEventRateLimitTriggered)
	if len(triggered) != 1 || triggered[0].Action != OperationCrisisAlert || triggered[0].Metadata["source"] != "authority" {
		t.Fatalf("expected one rate_limit_triggered entry, got %+v", triggered)
	}
}

func TestCrisisAlertOwnershipFailureOfSecondContact(t *testing.T) {
	te := buildTestEngine(t, testConfig(),
		contact("c1", "u1", "555-010-0001"),
		contact("c2", "u1", "555-010-0002"),
		contact("c3", "u1", "555-010-0003"),
	)
	te.contacts.deny("+15550100002")

	res, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1", SenderName: "Sam"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res.TotalContacts != 3 || res.ContactsNotified != 2 {
		t.Fatalf("expected 2 of 3 notified, got %d of %d", res.ContactsNotified, res.TotalContacts)
	}
	for _, o := range res.Results {
		switch o.ContactID {
		case "c2":
			if o.Success || o.ErrorReason != "unauthorized" {
				t.Fatalf("expected unauthorized outcome for c2, got %+v", o)
			}
		default:
			if !o.Success || o.ProviderReference == "" {
				t.Fatalf("expected success for %s, got %+v", o.ContactID, o)
			}
		}
	}
	for _, sent := range te.sms.Sent() {
		if strings.HasPrefix(sent, "+15550100002") {
			t.Fatalf("denied contact must never be sent to")
		}
	}

	te.Close()
	var mismatch bool
	for _, ev := range te.writer.Events() {
		if ev.Type == securityEventOwnershipMismatch && ev.Severity == RiskHigh && ev.Details["contact_id"] == "c2" {
			mismatch = true
		}
	}
	if !mismatch {
		t.Fatalf("expected contact_ownership_mismatch security event")
	}
	for _, ev := range te.writer.Events() {
		if ev.Type == securityEventOwnershipMismatch && ev.Details["error_class"] != ClassOwnership.String() {
			t.Fatalf("expected ownership class on mismatch event, got %+v", ev.Details)
		}
	}
}

func TestCrisisAlertTwiceCreatesIndependentRows(t *testing.T) {
	te := buildTestEngine(t, testConfig(),
		contact("c1", "u1", "555-010-0001"),
		contact("c2", "u1", "555-010-0002"),
	)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := te.SendCrisisAlert(ctx, CrisisAlertRequest{SenderUserID: "u1"}); err != nil {
			t.Fatalf("alert %d: %v", i+1, err)
		}
	}

	if got := te.store.Len(); got != 4 {
		t.Fatalf("expected 4 notification rows, got %d", got)
	}

	te.Close()
	ids := map[string]bool{}
	summaries := 0
	for _, e := range te.sink.byType(auditEventCrisisAlert) {
		if ids[e.ID] {
			t.Fatalf("duplicate audit id %s", e.ID)
		}
		ids[e.ID] = true
		if e.Outcome == OutcomeSuccess {
			summaries++
		}
	}
	if summaries != 2 {
		t.Fatalf("expected 2 successful summary entries, got %d", summaries)
	}
}

func TestCrisisAlertTransportFailureIsPerRecipient(t *testing.T) {
	te := buildTestEngine(t, testConfig(),
		contact("c1", "u1", "555-010-0001"),
		contact("c2", "u1", "555-010-0002"),
	)
	te.sms.fail["+15550100001"] = true

	res, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !res.Partial() || res.ContactsNotified != 1 {
		t.Fatalf("expected partial delivery, got %+v", res)
	}
	if got := te.store.Len(); got != 1 {
		t.Fatalf("expected notification only for delivered contact, got %d", got)
	}
}

func TestCrisisAlertSkipsInactiveAndForeignContacts(t *testing.T) {
	inactive := contact("c2", "u1", "555-010-0002")
	inactive.IsActive = false
	te := buildTestEngine(t, testConfig(),
		contact("c1", "u1", "555-010-0001"),
		inactive,
		contact("x1", "u2", "555-010-0009"),
	)

	res, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res.TotalContacts != 1 || len(res.Results) != 1 || res.Results[0].ContactID != "c1" {
		t.Fatalf("expected only c1 attempted, got %+v", res)
	}
}

func TestCrisisAlertUsesDefaultMessageAndSenderName(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg, contact("c1", "u1", "555-010-0001"))

	if _, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1", SenderName: "Sam"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	sent := te.sms.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sent))
	}
	if !strings.Contains(sent[0], cfg.Alert.DefaultMessage) || !strings.HasSuffix(sent[0], "- Sam") {
		t.Fatalf("unexpected body %q", sent[0])
	}
}

func TestCrisisAlertRequiresUser(t *testing.T) {
	te := buildTestEngine(t, testConfig(), contact("c1", "u1", "555-010-0001"))

	_, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if te.sms.Calls() != 0 {
		t.Fatalf("expected no transport calls")
	}
}

func TestCrisisAlertFailsClosedWhenRedisDown(t *testing.T) {
	te := buildTestEngine(t, testConfig(), contact("c1", "u1", "555-010-0001"))
	te.mr.Close()

	_, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"})
	if !errors.Is(err, ErrRateLimitUnavailable) {
		t.Fatalf("expected ErrRateLimitUnavailable, got %v", err)
	}
	if PolicyForError(err).HTTPStatus != 429 {
		t.Fatalf("expected 429 policy for unavailable limiter")
	}
	if te.sms.Calls() != 0 {
		t.Fatalf("expected no transport calls when limiter is down")
	}
}

func TestCrisisAlertContactLoadFailure(t *testing.T) {
	te := buildTestEngine(t, testConfig(), contact("c1", "u1", "555-010-0001"))
	te.contacts.listErr = errors.New("db down")

	_, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"})
	if !errors.Is(err, ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}
}

func TestCrisisAlertPublishesToRecipientSubscription(t *testing.T) {
	te := buildTestEngine(t, testConfig(), contact("c1", "u1", "555-010-0001"))

	sub, err := te.Subscribe("c1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if _, err := te.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Kind != notify.EventCreated || ev.Notification.Type != notify.TypeCrisisAlert {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Notification.Priority != notify.PriorityUrgent {
			t.Fatalf("expected urgent priority, got %s", ev.Notification.Priority)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected live notification event")
	}
}

// stalledSink never returns until released, whatever its context says.
type stalledSink struct {
	release chan struct{}
}

func (s *stalledSink) Emit(context.Context, AuditLogEntry) {
	<-s.release
}

func TestCrisisAlertNotHeldUpByStalledAuditSink(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := HighSecurityConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.EnqueueWait = 20 * time.Millisecond
	sink := &stalledSink{release: make(chan struct{})}
	sms := newRecordingSMS()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(newTestClock().Now).
		WithContactProvider(newMemContacts(contact("c1", "u1", "555-010-0001"))).
		WithSMSSender(sms).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	defer close(sink.release)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 2; i++ {
			if _, err := engine.SendCrisisAlert(context.Background(), CrisisAlertRequest{SenderUserID: "u1"}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("crisis alerts blocked on a stalled audit sink")
	}
	if sms.Calls() != 2 {
		t.Fatalf("expected 2 sends, got %d", sms.Calls())
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected audit entries beyond the buffer to be dropped and counted")
	}
}
