package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"wirdbot/internal/domain"
	"wirdbot/internal/progress"
	"wirdbot/internal/quran"
	"wirdbot/internal/reminders"
	"wirdbot/internal/services/scheduler"
	"wirdbot/internal/storage"
	kit "wirdbot/internal/transport"
	logx "wirdbot/pkg/logx"
)

type fakeAdapter struct {
	mu       sync.Mutex
	nextID   int
	texts    []string
	edited   []string
	answered []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.texts = append(f.texts, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) SendPhoto(ctx context.Context, to kit.ChatTarget, url, caption string) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, text)
	return nil
}

func (f *fakeAdapter) DeleteMessage(ctx context.Context, ref kit.MessageRef) error { return nil }

func (f *fakeAdapter) AnswerCallback(ctx context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeAdapter) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no texts sent")
	}
	return f.texts[len(f.texts)-1]
}

func newTestRouter(t *testing.T, admins ...int64) (*Router, *fakeAdapter, *scheduler.Service, storage.Store) {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "wird"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ad := &fakeAdapter{}
	sched := scheduler.New(scheduler.Config{}, logx.Nop())
	tracker := progress.NewTracker(st, logx.Nop())
	h := reminders.NewHandlers(ad, tracker, quran.NewLinks(""), sched, time.UTC, logx.Nop())
	in := reminders.NewInstaller(sched, h, st, nil, time.UTC, logx.Nop())
	r := New(Config{AdminIDs: admins}, ad, st, tracker, h, in, logx.Nop())
	return r, ad, sched, st
}

func message(userID int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ID: 1, ChatID: userID, FromID: userID, FromUsername: "user", Text: text,
	}}
}

func callback(userID int64, msgID int, data string) kit.Update {
	return kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{
		ID: "cb", FromID: userID, ChatID: userID, MessageID: msgID, Data: data,
	}}
}

func TestStartRegistersUser(t *testing.T) {
	t.Parallel()

	r, ad, _, st := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, message(1, "/start"))

	if got := ad.lastText(t); got != textWelcome {
		t.Fatalf("welcome = %q", got)
	}
	u, found, err := st.GetUser(ctx, 1)
	if err != nil || !found {
		t.Fatalf("user not registered: %v %v", found, err)
	}
	if u.Subs.Any() {
		t.Fatal("fresh user must start unsubscribed")
	}
	if _, found, _ := st.GetProgress(ctx, 1); !found {
		t.Fatal("progress record not created")
	}
}

func TestToggleConfirmInstallsJobs(t *testing.T) {
	t.Parallel()

	r, ad, sched, st := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, message(2, "/start"))
	r.dispatch(ctx, callback(2, 1, callbackTogglePrefix+string(domain.ServiceQuran)))
	r.dispatch(ctx, callback(2, 1, callbackConfirmChoices))

	u, _, _ := st.GetUser(ctx, 2)
	if !u.Subs.Enabled(domain.ServiceQuran) || u.Subs.Enabled(domain.ServiceDhikr) ||
		u.Subs.Enabled(domain.ServiceProphetPrayer) || u.Subs.Enabled(domain.ServiceNightPrayer) {
		t.Fatalf("subs = %+v", u.Subs)
	}
	names := sched.Names(reminders.OwnerPrefix(2))
	if len(names) != 1 {
		t.Fatalf("installed jobs = %v", names)
	}
	// The summary lists only the confirmed service.
	summary := ad.lastText(t)
	if !strings.HasPrefix(summary, textScheduleHeader) || !strings.HasSuffix(summary, textScheduleFooter) {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.Contains(summary, serviceScheduleLines[domain.ServiceQuran]) {
		t.Fatalf("summary misses the quran line: %q", summary)
	}
	if strings.Contains(summary, serviceScheduleLines[domain.ServiceProphetPrayer]) ||
		strings.Contains(summary, serviceScheduleLines[domain.ServiceNightPrayer]) {
		t.Fatalf("summary lists unselected services: %q", summary)
	}
	ad.mu.Lock()
	sawAck := false
	for _, e := range ad.edited {
		if e == textSelectionAck {
			sawAck = true
		}
	}
	ad.mu.Unlock()
	if !sawAck {
		t.Fatal("selection ack not rendered")
	}
}

func TestConfirmWithNothingSelected(t *testing.T) {
	t.Parallel()

	r, ad, sched, _ := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, message(3, "/start"))
	r.dispatch(ctx, callback(3, 1, callbackConfirmChoices))

	// The notice replaces the keyboard prompt in place, no new message.
	ad.mu.Lock()
	if len(ad.edited) != 1 || ad.edited[0] != textNoServiceSelected {
		t.Fatalf("edited = %q", ad.edited)
	}
	if len(ad.texts) != 1 {
		t.Fatalf("texts = %q", ad.texts)
	}
	ad.mu.Unlock()
	if names := sched.Names(reminders.OwnerPrefix(3)); len(names) != 0 {
		t.Fatalf("jobs installed: %v", names)
	}
}

func TestToggleTwiceDisables(t *testing.T) {
	t.Parallel()

	r, ad, _, _ := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, message(4, "/start"))
	r.dispatch(ctx, callback(4, 1, callbackTogglePrefix+string(domain.ServiceDhikr)))
	r.dispatch(ctx, callback(4, 1, callbackTogglePrefix+string(domain.ServiceDhikr)))
	r.dispatch(ctx, callback(4, 1, callbackConfirmChoices))

	ad.mu.Lock()
	defer ad.mu.Unlock()
	// Two keyboard re-renders, then the zero-services notice.
	if len(ad.edited) != 3 || ad.edited[2] != textNoServiceSelected {
		t.Fatalf("edited = %q", ad.edited)
	}
}

func TestStaleToggleIgnored(t *testing.T) {
	t.Parallel()

	r, ad, _, _ := newTestRouter(t)
	ctx := context.Background()

	// No /start: the button belongs to a dead dialog.
	r.dispatch(ctx, callback(5, 1, callbackTogglePrefix+string(domain.ServiceQuran)))

	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.texts) != 0 || len(ad.edited) != 0 {
		t.Fatalf("stale toggle produced output: %q %q", ad.texts, ad.edited)
	}
	if len(ad.answered) != 1 {
		t.Fatal("callback must still be answered")
	}
}

func TestAdminCommandsAreGated(t *testing.T) {
	t.Parallel()

	r, ad, _, st := newTestRouter(t, 99)
	ctx := context.Background()

	u := domain.NewUser(50, "reader")
	u.Subs.Toggle(domain.ServiceQuran)
	if err := st.UpsertUser(ctx, u); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	r.dispatch(ctx, message(50, "/users_count"))
	if got := ad.lastText(t); got != textAdminsOnly {
		t.Fatalf("non-admin got %q", got)
	}

	r.dispatch(ctx, message(99, "/users_count"))
	if got := ad.lastText(t); got != fmt.Sprintf(textUsersCountFmt, 1) {
		t.Fatalf("count = %q", got)
	}

	r.dispatch(ctx, message(99, "/users_info"))
	info := ad.lastText(t)
	if !strings.Contains(info, "reader") || !strings.Contains(info, "القرآن") {
		t.Fatalf("info = %q", info)
	}
}

func TestUsersInfoEmpty(t *testing.T) {
	t.Parallel()

	r, ad, _, _ := newTestRouter(t, 99)
	r.dispatch(context.Background(), message(99, "/users_info"))
	if got := ad.lastText(t); got != textNoUsers {
		t.Fatalf("text = %q", got)
	}
}

func TestReadingCallbackRouted(t *testing.T) {
	t.Parallel()

	r, ad, _, _ := newTestRouter(t)
	ctx := context.Background()

	// No backlog yet: the resend callback answers with the no-backlog note.
	r.dispatch(ctx, callback(7, 3, reminders.CallbackReturnWird))
	if got := ad.lastText(t); got == "" {
		t.Fatal("resend produced no reply")
	}

	r.dispatch(ctx, callback(7, 3, reminders.CallbackNoMore))
	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.edited) == 0 || ad.edited[len(ad.edited)-1] != reminders.TextNoMoreAck {
		t.Fatalf("edited = %q", ad.edited)
	}
}

func TestRunDrainsAndStops(t *testing.T) {
	t.Parallel()

	r, ad, _, _ := newTestRouter(t)
	updates := make(chan kit.Update, 4)
	updates <- message(8, "/start")
	updates <- message(9, "/start")
	close(updates)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), updates)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after channel close")
	}

	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.texts) != 2 {
		t.Fatalf("texts = %q", ad.texts)
	}
}
