package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/core/service"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/telemetry/logger"
)

const (
	alice = "aaaaa-aa"
	bob   = "bbbbb-bb"
)

type testEnv struct {
	h     *Handler
	loop  *runloop.Loop
	sched *runloop.Virtual
	svc   *service.Service
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	sched := runloop.NewVirtual(1_000)
	loop := runloop.New(runloop.WithClock(sched))
	t.Cleanup(loop.Close)

	svc := service.New(memory.New(), sched)
	cfg := Config{
		Service: svc,
		Loop:    loop,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	return &testEnv{h: New(cfg), loop: loop, sched: sched, svc: svc}
}

// advance moves logical time forward on the loop.
func (e *testEnv) advance(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, e.loop.Do(context.Background(), func() { e.sched.Advance(d) }))
}

func (e *testEnv) do(t *testing.T, method, path, as string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	ctx := logger.WithRequestID(req.Context(), "req-test")
	if as != "" {
		ctx = logger.WithCaller(ctx, as)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

// decode unpacks the envelope and, when out is non-nil, its data.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) Response {
	t.Helper()

	var env struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env.Response
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	resp := decode(t, rec, &data)
	require.Equal(t, "OK", resp.Code)
	require.Equal(t, "req-test", resp.RequestID)
	require.Equal(t, "healthy", data["status"])
}

func TestReady(t *testing.T) {
	readiness := NewReadiness()
	env := newTestEnv(t, func(c *Config) { c.Readiness = readiness })

	rec := env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	readiness.MarkReady()
	rec = env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]string
	decode(t, rec, &data)
	require.Equal(t, "ready", data["status"])

	readiness.SetDegraded("restore fault")
	rec = env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &data)
	require.Equal(t, "degraded", data["status"])
	require.Equal(t, "restore fault", data["reason"])

	env.loop.Close()
	rec = env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetOrCreateUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/users/me", alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first UserResponse
	decode(t, rec, &first)
	require.True(t, first.Created)
	require.Equal(t, domain.Principal(alice), first.User.ID)

	rec = env.do(t, http.MethodPost, "/v1/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var second UserResponse
	decode(t, rec, &second)
	require.False(t, second.Created)
	require.Equal(t, first.User, second.User)
}

func TestSendMail_Flow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/mail", alice, SendMailRequest{
		Receiver: bob, Subject: "hello", Body: "world",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sent domain.Email
	decode(t, rec, &sent)
	require.Equal(t, uint64(1_000), sent.Timestamp)
	require.False(t, sent.Read)

	rec = env.do(t, http.MethodGet, "/v1/mail/inbox", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox EmailListResponse
	decode(t, rec, &inbox)
	require.Equal(t, 1, inbox.Total)
	require.Equal(t, "hello", inbox.Emails[0].Subject)

	rec = env.do(t, http.MethodGet, "/v1/mail/sent", alice, nil)
	var outbox EmailListResponse
	decode(t, rec, &outbox)
	require.Equal(t, 1, outbox.Total)

	path := "/v1/mail/" + alice + "/" + strconv.FormatUint(sent.Timestamp, 10)

	rec = env.do(t, http.MethodPost, path+"/read", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mark MarkReadResponse
	decode(t, rec, &mark)
	require.True(t, mark.Updated)

	rec = env.do(t, http.MethodPost, "/v1/mail/"+alice+"/42/read", bob, nil)
	decode(t, rec, &mark)
	require.False(t, mark.Updated)

	rec = env.do(t, http.MethodPut, path+"/star", bob, map[string]bool{"starred": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var star StarResponse
	decode(t, rec, &star)
	require.True(t, star.Starred)

	rec = env.do(t, http.MethodGet, path+"/star", bob, nil)
	decode(t, rec, &star)
	require.True(t, star.Starred)

	rec = env.do(t, http.MethodGet, "/v1/mail/starred", bob, nil)
	var starred EmailListResponse
	decode(t, rec, &starred)
	require.Equal(t, 1, starred.Total)
	require.True(t, starred.Emails[0].Read)

	rec = env.do(t, http.MethodGet, "/v1/mail/starred/keys", bob, nil)
	var keys StarredKeysResponse
	decode(t, rec, &keys)
	require.Equal(t, []domain.EmailKey{{Sender: alice, Timestamp: sent.Timestamp}}, keys.Keys)
}

func TestSendMail_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  SendMailRequest
		code string
	}{
		{"empty subject", SendMailRequest{Receiver: bob, Subject: " ", Body: "b"}, "TM-MAIL-4001"},
		{"empty body", SendMailRequest{Receiver: bob, Subject: "s", Body: ""}, "TM-MAIL-4002"},
		{"anonymous receiver", SendMailRequest{Receiver: string(domain.AnonymousPrincipal), Subject: "s", Body: "b"}, "TM-MAIL-4003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/mail", alice, tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.code, rec.Header().Get("X-Error-Code"))
			resp := decode(t, rec, nil)
			require.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/mail", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, req.WithContext(logger.WithCaller(req.Context(), alice)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-SYS-4000", rec.Header().Get("X-Error-Code"))

	rec = env.do(t, http.MethodGet, "/v1/mail/"+bob+"/abc/star", alice, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-ARG-1001", rec.Header().Get("X-Error-Code"))

	rec = env.do(t, http.MethodPut, "/v1/mail/"+bob+"/1/star", alice, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-ARG-1002", rec.Header().Get("X-Error-Code"))
}

func TestChat_Flow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/chats/"+bob+"/messages", alice, SendChatRequest{Content: "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)
	env.advance(t, 10)
	env.do(t, http.MethodPost, "/v1/chats/"+bob+"/messages", alice, SendChatRequest{Content: "there"})

	rec = env.do(t, http.MethodGet, "/v1/chats", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ChatListResponse
	decode(t, rec, &list)
	require.Len(t, list.Chats, 1)
	require.Equal(t, domain.Principal(alice), list.Chats[0].OtherUser)
	require.Equal(t, "there", list.Chats[0].LastMessage)
	require.Equal(t, uint64(2), list.Chats[0].UnreadCount)
	require.Equal(t, uint64(2), list.TotalUnread)

	rec = env.do(t, http.MethodGet, "/v1/chats/"+alice+"/messages", bob, nil)
	var msgs ChatMessagesResponse
	decode(t, rec, &msgs)
	require.Equal(t, 2, msgs.Total)
	require.Equal(t, "hi", msgs.Messages[0].Content)

	env.advance(t, 10)
	rec = env.do(t, http.MethodPost, "/v1/chats/"+alice+"/read", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/chats", bob, nil)
	decode(t, rec, &list)
	require.Equal(t, uint64(0), list.Chats[0].UnreadCount)
	require.Equal(t, uint64(0), list.TotalUnread)
}

func TestChat_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/chats/"+alice+"/messages", alice, SendChatRequest{Content: "me"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-CHAT-4002", rec.Header().Get("X-Error-Code"))

	rec = env.do(t, http.MethodPost, "/v1/chats/"+bob+"/messages", alice, SendChatRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-CHAT-4001", rec.Header().Get("X-Error-Code"))

	rec = env.do(t, http.MethodGet, "/v1/chats", alice, nil)
	var list ChatListResponse
	decode(t, rec, &list)
	require.NotNil(t, list.Chats)
	require.Empty(t, list.Chats)
}

func TestReminders_Flow(t *testing.T) {
	env := newTestEnv(t)
	path := "/v1/reminders/" + bob + "/500"

	rec := env.do(t, http.MethodPut, path, alice, SetReminderRequest{RemindAt: 1_000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "TM-RMD-4001", rec.Header().Get("X-Error-Code"))

	rec = env.do(t, http.MethodPut, path, alice, SetReminderRequest{RemindAt: 1_100})
	require.Equal(t, http.StatusOK, rec.Code)
	var rem domain.Reminder
	decode(t, rec, &rem)
	require.False(t, rem.Fired)

	rec = env.do(t, http.MethodPost, path+"/dismiss", alice, nil)
	var removed RemovedResponse
	decode(t, rec, &removed)
	require.False(t, removed.Removed, "pending reminders cannot be dismissed")

	rec = env.do(t, http.MethodGet, "/v1/reminders/due", alice, nil)
	var due ReminderListResponse
	decode(t, rec, &due)
	require.Equal(t, 0, due.Total)

	env.advance(t, 100)

	rec = env.do(t, http.MethodGet, "/v1/reminders/due", alice, nil)
	decode(t, rec, &due)
	require.Equal(t, 1, due.Total)
	require.True(t, due.Reminders[0].Fired)

	rec = env.do(t, http.MethodPost, path+"/dismiss", alice, nil)
	decode(t, rec, &removed)
	require.True(t, removed.Removed)

	rec = env.do(t, http.MethodGet, "/v1/reminders", alice, nil)
	var all ReminderListResponse
	decode(t, rec, &all)
	require.Equal(t, 0, all.Total)
}

func TestReminders_Cancel(t *testing.T) {
	env := newTestEnv(t)
	path := "/v1/reminders/" + bob + "/500"

	env.do(t, http.MethodPut, path, alice, SetReminderRequest{RemindAt: 2_000})

	rec := env.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed RemovedResponse
	decode(t, rec, &removed)
	require.True(t, removed.Removed)

	rec = env.do(t, http.MethodDelete, path, alice, nil)
	decode(t, rec, &removed)
	require.False(t, removed.Removed)

	env.advance(t, 5_000)
	rec = env.do(t, http.MethodGet, "/v1/reminders/due", alice, nil)
	var due ReminderListResponse
	decode(t, rec, &due)
	require.Equal(t, 0, due.Total)
}

func TestLoopClosed(t *testing.T) {
	env := newTestEnv(t)
	env.loop.Close()

	rec := env.do(t, http.MethodGet, "/v1/mail/inbox", alice, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "TM-SYS-5030", rec.Header().Get("X-Error-Code"))
}

type fakeStatus storage.Status

func (f fakeStatus) Status() storage.Status { return storage.Status(f) }

func TestSnapshotStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/admin/v1/snapshot", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env = newTestEnv(t, func(c *Config) {
		c.Snapshots = fakeStatus{Backend: "file", LastError: "disk full"}
	})
	rec = env.do(t, http.MethodGet, "/admin/v1/snapshot", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st storage.Status
	decode(t, rec, &st)
	require.Equal(t, "file", st.Backend)
	require.Equal(t, "disk full", st.LastError)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	env = newTestEnv(t, func(c *Config) {
		c.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "# metrics")
		})
	})
	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "# metrics", rec.Body.String())
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		"TM-MAIL-4001":  http.StatusBadRequest,
		"TM-MAIL-4003":  http.StatusBadRequest,
		"TM-SYS-4000":   http.StatusBadRequest,
		"TM-ARG-1001":   http.StatusBadRequest,
		"TM-USER-4010":  http.StatusUnauthorized,
		"TM-ADMIN-4031": http.StatusForbidden,
		"TM-SYS-4290":   http.StatusTooManyRequests,
		"TM-SYS-5030":   http.StatusServiceUnavailable,
		"TM-SNAP-5001":  http.StatusInternalServerError,
		"unknown":       http.StatusInternalServerError,
	}
	for code, want := range tests {
		require.Equal(t, want, ErrorCodeToHTTPStatus(code), code)
	}
}

func TestLoopError(t *testing.T) {
	require.ErrorIs(t, loopError(runloop.ErrClosed), domain.ErrServiceUnavailable)
	require.ErrorIs(t, loopError(context.Canceled), domain.ErrServiceUnavailable)
	require.ErrorIs(t, loopError(runloop.ErrTaskPanicked), domain.ErrInternalServer)

	other := errors.New("boom")
	require.Equal(t, other, loopError(other))
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestEncodeFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, func(c *Config) {
		c.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	w := brokenWriter{httptest.NewRecorder()}
	env.h.writeJSON(w, req, http.StatusOK, map[string]int{"n": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = brokenWriter{httptest.NewRecorder()}
	env.h.writeError(w, req, http.StatusBadRequest, "TM-SYS-4000", "bad request", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "TM-SYS-4000", w.Header().Get("X-Error-Code"))

	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"msg":"failed to encode response"`)))
	require.Contains(t, buf.String(), "connection reset")
}
