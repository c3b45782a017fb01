package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/jwt"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/store/memory"
)

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return "", fmt.Errorf("%w: rejected", goalert.ErrTransport)
	}
	f.sent = append(f.sent, to)
	return fmt.Sprintf("SM%d", len(f.sent)), nil
}

func (f *fakeSMS) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type testAPI struct {
	srv      *httptest.Server
	engine   *goalert.Engine
	contacts *memory.Contacts
	sms      *fakeSMS
	tokens   *jwt.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goalert.DefaultConfig()
	cfg.Alert.StepTimeout = 2 * time.Second
	cfg.Alert.RequestTimeout = 5 * time.Second

	contacts := memory.NewContacts()
	sms := &fakeSMS{fail: map[string]bool{}}
	hub := notify.NewHub(cfg.Notify.SubscriberBuffer)
	svc := notify.NewService(memory.NewNotifications(), notify.ServiceConfig{}, hub)

	engine, err := goalert.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithContactProvider(contacts).
		WithSMSSender(sms).
		WithNotifier(svc).
		WithHub(hub).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() {
		engine.Close()
		hub.Close()
	})

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("httpapi-test-signing-key-0123456"),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Config{
		Service:  engine,
		Verifier: tokens,
		Contacts: contacts,
		Health:   func(context.Context) error { return nil },
	}))
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, engine: engine, contacts: contacts, sms: sms, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, uid, name string) string {
	t.Helper()
	tok, err := a.tokens.CreateAccess(uid, "s-"+uid, name)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (a *testAPI) addContact(t *testing.T, owner, name, phone string) goalert.SupportContact {
	t.Helper()
	c, err := a.contacts.Create(context.Background(), owner, goalert.SupportContact{Name: name, PhoneNumber: phone})
	require.NoError(t, err)
	return c
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/send-support-message"},
		{http.MethodPost, "/crisis-alert"},
		{http.MethodGet, "/notifications"},
		{http.MethodGet, "/contacts"},
	} {
		resp, body := api.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
		assert.Equal(t, false, body["success"], route.path)
	}

	resp, _ := api.do(t, http.MethodGet, "/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, body := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSendSupportMessage(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1", "Alex")
	c1 := api.addContact(t, "u1", "Sam", "(555) 010-0001")
	c2 := api.addContact(t, "u1", "Kim", "555-010-0002")
	api.sms.fail[c2.PhoneNumber] = true

	resp, body := api.do(t, http.MethodPost, "/send-support-message", tok, map[string]any{
		"contacts": []goalert.SupportContact{c1, c2},
		"message":  "Could use a call tonight",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Sent to 1 of 2 contacts", body["message"])
	assert.EqualValues(t, 1, body["contactsNotified"])
	assert.EqualValues(t, 2, body["totalContacts"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, []string{c1.PhoneNumber}, api.sms.Sent())
}

func TestSendSupportMessageForeignContactNotSent(t *testing.T) {
	api := newTestAPI(t)
	foreign := api.addContact(t, "u2", "Pat", "5550100003")

	resp, body := api.do(t, http.MethodPost, "/send-support-message", api.token(t, "u1", ""), map[string]any{
		"contacts": []goalert.SupportContact{foreign},
		"message":  "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 0, body["contactsNotified"])
	assert.Empty(t, api.sms.Sent())
}

func TestSendSupportMessageBadBody(t *testing.T) {
	api := newTestAPI(t)
	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/send-support-message", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token(t, "u1", ""))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body.Error)
}

func TestCrisisAlertReachesNetworkAndRateLimits(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "u1", "Alex")
	c := api.addContact(t, "u1", "Sam", "5550100001")

	for i := 0; i < 3; i++ {
		resp, body := api.do(t, http.MethodPost, "/crisis-alert", tok, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "attempt %d", i)
		assert.Equal(t, true, body["success"])
	}
	assert.Len(t, api.sms.Sent(), 3)

	resp, body := api.do(t, http.MethodPost, "/crisis-alert", tok, map[string]string{"message": "please call"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Len(t, api.sms.Sent(), 3)

	list, err := api.engine.ListNotifications(context.Background(), c.ID, notify.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCrisisAlertWithoutContacts(t *testing.T) {
	api := newTestAPI(t)
	resp, body := api.do(t, http.MethodPost, "/crisis-alert", api.token(t, "u1", ""), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestNotificationLifecycle(t *testing.T) {
	api := newTestAPI(t)
	sender := api.token(t, "u1", "")
	recipient := api.token(t, "u2", "")

	resp, body := api.do(t, http.MethodPost, "/notifications", sender, createNotificationRequest{
		RecipientID: "u2",
		Title:       "Thinking of you",
		Message:     "Here if you need me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	n := body["notification"].(map[string]any)
	id := n["id"].(string)
	assert.Equal(t, "normal", n["priority"])

	resp, body = api.do(t, http.MethodGet, "/notifications?unread=true", recipient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["unreadCount"])

	resp, _ = api.do(t, http.MethodPost, "/notifications/"+id+"/read", sender, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = api.do(t, http.MethodPost, "/notifications/"+id+"/read", recipient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["notification"].(map[string]any)["read_at"])

	resp, body = api.do(t, http.MethodGet, "/notifications?unread=true", recipient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["notifications"])

	resp, _ = api.do(t, http.MethodGet, "/notifications?limit=abc", recipient, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateNotificationRejectsBadPriority(t *testing.T) {
	api := newTestAPI(t)
	resp, _ := api.do(t, http.MethodPost, "/notifications", api.token(t, "u1", ""), createNotificationRequest{
		RecipientID: "u2",
		Title:       "t",
		Message:     "m",
		Priority:    "extreme",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationStream(t *testing.T) {
	api := newTestAPI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.srv.URL+"/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token(t, "u2", ""))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	n, err := api.engine.SendSupportNotification(context.Background(), "u1", "u2", "hi", "checking in", notify.PriorityHigh)
	require.NoError(t, err)

	var event, data string
	for data == "" {
		line, err = rd.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.Equal(t, "created", event)

	var ev notify.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, n.ID, ev.Notification.ID)
	assert.Equal(t, notify.PriorityHigh, ev.Notification.Priority)
}

func TestContactsCRUD(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token(t, "u1", "")
	other := api.token(t, "u2", "")

	resp, body := api.do(t, http.MethodPost, "/contacts", owner, map[string]string{
		"name":        "  Sam ",
		"phoneNumber": "(555) 010-0001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := body["contact"].(map[string]any)
	id := c["id"].(string)
	assert.Equal(t, "Sam", c["name"])
	assert.Equal(t, "+15550100001", c["phoneNumber"])

	resp, _ = api.do(t, http.MethodPost, "/contacts", owner, map[string]string{"name": "x", "phoneNumber": "123"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/contacts/"+id, other, map[string]string{"name": "Mine", "phoneNumber": "5550100009"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = api.do(t, http.MethodPut, "/contacts/"+id, owner, map[string]string{"name": "Sam B", "phoneNumber": "5550100001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sam B", body["contact"].(map[string]any)["name"])

	resp, body = api.do(t, http.MethodGet, "/contacts", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["contacts"], 1)

	resp, _ = api.do(t, http.MethodDelete, "/contacts/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodDelete, "/contacts/"+id, owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = api.do(t, http.MethodGet, "/contacts", owner, nil)
	assert.Empty(t, body["contacts"])
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req, err := http.NewRequest(http.MethodOptions, api.srv.URL+"/crisis-alert", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowsContactWrites(t *testing.T) {
	api := newTestAPI(t)
	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req, err := http.NewRequest(http.MethodOptions, api.srv.URL+"/contacts/c1", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", method)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), method)
	}
}
