// Package flow drives the interactive side of the bot: the /start
// subscription dialog, the reading-confirmation callbacks and the admin
// commands. It consumes the transport update stream and hands domain work to
// the reminder handlers.
package flow

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"wirdbot/internal/domain"
	"wirdbot/internal/progress"
	"wirdbot/internal/reminders"
	"wirdbot/internal/storage"
	kit "wirdbot/internal/transport"
	logx "wirdbot/pkg/logx"
	"wirdbot/pkg/tgui"
)

type Config struct {
	Workers  int
	AdminIDs []int64
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	return c
}

// Router dispatches incoming updates. Selection state for an open /start
// keyboard lives in memory only; the confirmed subscriptions are what gets
// persisted.
type Router struct {
	cfg       Config
	adapter   kit.Adapter
	store     storage.Store
	tracker   *progress.Tracker
	handlers  *reminders.Handlers
	installer *reminders.Installer
	admins    map[int64]bool
	log       logx.Logger

	mu        sync.Mutex
	selecting map[int64]selection
}

// selection is one open subscription keyboard.
type selection struct {
	subs domain.Subscriptions
	msg  kit.MessageRef
}

func New(cfg Config, adapter kit.Adapter, store storage.Store, tracker *progress.Tracker, handlers *reminders.Handlers, installer *reminders.Installer, log logx.Logger) *Router {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	return &Router{
		cfg:       cfg,
		adapter:   adapter,
		store:     store,
		tracker:   tracker,
		handlers:  handlers,
		installer: installer,
		admins:    admins,
		log:       log,
		selecting: map[int64]selection{},
	}
}

// Run consumes updates until the channel closes or ctx is cancelled. Each
// worker isolates panics so one bad update cannot take the pool down.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case u, ok := <-updates:
					if !ok {
						return
					}
					r.dispatch(ctx, u)
				}
			}
		}()
	}
	wg.Wait()
}

func (r *Router) dispatch(ctx context.Context, u kit.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("update handler panic",
				logx.Any("panic", rec), logx.String("stack", string(debug.Stack())))
		}
	}()

	switch u.Kind {
	case kit.UpdateMessage:
		if u.Message != nil {
			r.handleMessage(ctx, *u.Message)
		}
	case kit.UpdateCallback:
		if u.Callback != nil {
			r.handleCallback(ctx, *u.Callback)
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, m kit.Message) {
	cmd := m.Text
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start":
		r.startDialog(ctx, m)
	case "/users_count":
		r.usersCount(ctx, m)
	case "/users_info":
		r.usersInfo(ctx, m)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb kit.Callback) {
	if err := r.adapter.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.log.Debug("callback answer failed", logx.Err(err))
	}
	ref := kit.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	var err error
	switch {
	case strings.HasPrefix(cb.Data, callbackTogglePrefix):
		err = r.toggleService(ctx, cb.FromID, domain.Service(strings.TrimPrefix(cb.Data, callbackTogglePrefix)))
	case cb.Data == callbackConfirmChoices:
		err = r.confirmChoices(ctx, cb.FromID, ref)
	case cb.Data == reminders.CallbackConfirmRead:
		err = r.handlers.ConfirmRead(ctx, cb.FromID, ref)
	case cb.Data == reminders.CallbackReturnWird:
		err = r.handlers.Resend(ctx, cb.FromID, ref)
	case cb.Data == reminders.CallbackMoreQuran:
		err = r.handlers.MoreQuran(ctx, cb.FromID, ref)
	case cb.Data == reminders.CallbackNoMore:
		err = r.adapter.EditText(ctx, ref, reminders.TextNoMoreAck, nil)
	default:
		r.log.Debug("unknown callback", logx.String("data", cb.Data))
		return
	}
	if err != nil {
		r.log.Error("callback failed",
			logx.Int64("user", cb.FromID), logx.String("data", cb.Data), logx.Err(err))
	}
}

// startDialog registers the user if needed and opens the service-selection
// keyboard, pre-ticked with their current subscriptions.
func (r *Router) startDialog(ctx context.Context, m kit.Message) {
	u, found, err := r.store.GetUser(ctx, m.FromID)
	if err != nil {
		r.log.Error("user load failed", logx.Int64("user", m.FromID), logx.Err(err))
		return
	}
	if !found {
		u = domain.NewUser(m.FromID, m.FromUsername)
		if err := r.store.UpsertUser(ctx, u); err != nil {
			r.log.Error("user register failed", logx.Int64("user", m.FromID), logx.Err(err))
			return
		}
		if _, err := r.tracker.Get(ctx, m.FromID); err != nil {
			r.log.Warn("progress init failed", logx.Int64("user", m.FromID), logx.Err(err))
		}
		r.log.Info("user registered", logx.Int64("user", m.FromID), logx.String("username", m.FromUsername))
	} else if m.FromUsername != "" && u.Username != m.FromUsername {
		u.Username = m.FromUsername
		if err := r.store.UpsertUser(ctx, u); err != nil {
			r.log.Warn("username refresh failed", logx.Int64("user", m.FromID), logx.Err(err))
		}
	}

	opt := &kit.SendOptions{ReplyMarkupAdapter: selectionMarkup(u.Subs)}
	ref, err := r.adapter.SendText(ctx, kit.ChatTarget{ChatID: m.ChatID}, textWelcome, opt)
	if err != nil {
		r.log.Error("welcome send failed", logx.Int64("user", m.FromID), logx.Err(err))
		return
	}

	r.mu.Lock()
	r.selecting[m.FromID] = selection{subs: u.Subs, msg: ref}
	r.mu.Unlock()
}

// toggleService flips one service on the open keyboard and re-renders it.
// A toggle without an open keyboard is a stale button press and is ignored.
func (r *Router) toggleService(ctx context.Context, userID int64, svc domain.Service) error {
	if !svc.Valid() {
		return fmt.Errorf("unknown service %q", svc)
	}

	r.mu.Lock()
	sel, ok := r.selecting[userID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if _, err := sel.subs.Toggle(svc); err != nil {
		r.mu.Unlock()
		return err
	}
	r.selecting[userID] = sel
	r.mu.Unlock()

	opt := &kit.SendOptions{ReplyMarkupAdapter: selectionMarkup(sel.subs)}
	return r.adapter.EditText(ctx, sel.msg, textWelcome, opt)
}

// confirmChoices persists the selection, rebuilds the user's reminder jobs
// and closes the dialog with the schedule summary.
func (r *Router) confirmChoices(ctx context.Context, userID int64, ref kit.MessageRef) error {
	r.mu.Lock()
	sel, ok := r.selecting[userID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	to := kit.ChatTarget{ChatID: ref.ChatID}

	if !sel.subs.Any() {
		// Keep the keyboard usable: swap the prompt for the notice in place.
		opt := &kit.SendOptions{ReplyMarkupAdapter: selectionMarkup(sel.subs)}
		return r.adapter.EditText(ctx, sel.msg, textNoServiceSelected, opt)
	}

	// Acknowledge first; persistence and job installation must not delay it.
	if err := r.adapter.EditText(ctx, ref, textSelectionAck, nil); err != nil {
		r.log.Debug("ack edit failed", logx.Int64("user", userID), logx.Err(err))
	}
	if _, err := r.adapter.SendText(ctx, to, textScheduling, nil); err != nil {
		r.log.Debug("scheduling note failed", logx.Int64("user", userID), logx.Err(err))
	}

	if err := r.applyChoices(ctx, userID, sel.subs); err != nil {
		r.log.Error("selection confirm failed", logx.Int64("user", userID), logx.Err(err))
		_, sendErr := r.adapter.SendText(ctx, to, fmt.Sprintf(textConfirmErrorFmt, err), nil)
		return sendErr
	}

	r.mu.Lock()
	delete(r.selecting, userID)
	r.mu.Unlock()

	_, err := r.adapter.SendText(ctx, to, scheduleSummary(sel.subs), nil)
	return err
}

// scheduleSummary lists the reminder times for the confirmed services only.
func scheduleSummary(subs domain.Subscriptions) string {
	var b strings.Builder
	b.WriteString(textScheduleHeader)
	n := 0
	for _, svc := range domain.Services {
		if !subs.Enabled(svc) {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d- %s\n\n", n, serviceScheduleLines[svc])
	}
	b.WriteString(textScheduleFooter)
	return b.String()
}

func (r *Router) applyChoices(ctx context.Context, userID int64, subs domain.Subscriptions) error {
	u, _, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.ID == 0 {
		u = domain.NewUser(userID, "")
	}
	u.Subs = subs
	if err := r.store.UpsertUser(ctx, u); err != nil {
		return err
	}
	if subs.Any() {
		return r.installer.Install(ctx, u)
	}
	r.installer.Uninstall(userID)
	return nil
}

func (r *Router) usersCount(ctx context.Context, m kit.Message) {
	if !r.requireAdmin(ctx, m) {
		return
	}
	users, err := r.store.AllUsers(ctx)
	if err != nil {
		r.log.Error("user list failed", logx.Err(err))
		return
	}
	_, err = r.adapter.SendText(ctx, kit.ChatTarget{ChatID: m.ChatID},
		fmt.Sprintf(textUsersCountFmt, len(users)), nil)
	if err != nil {
		r.log.Warn("users_count reply failed", logx.Err(err))
	}
}

func (r *Router) usersInfo(ctx context.Context, m kit.Message) {
	if !r.requireAdmin(ctx, m) {
		return
	}
	users, err := r.store.AllUsers(ctx)
	if err != nil {
		r.log.Error("user list failed", logx.Err(err))
		return
	}
	to := kit.ChatTarget{ChatID: m.ChatID}
	if len(users) == 0 {
		_, _ = r.adapter.SendText(ctx, to, textNoUsers, nil)
		return
	}

	var b strings.Builder
	b.WriteString(textUsersInfoHeader)
	for _, u := range users {
		name := u.Username
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, textUserInfoEntryFmt,
			name, u.ID, u.JoinedAt.Format("2006-01-02"), describeServices(u.Subs))
		b.WriteString("\n")
	}
	if _, err := r.adapter.SendText(ctx, to, b.String(), nil); err != nil {
		r.log.Warn("users_info reply failed", logx.Err(err))
	}
}

func (r *Router) requireAdmin(ctx context.Context, m kit.Message) bool {
	if r.admins[m.FromID] {
		return true
	}
	_, _ = r.adapter.SendText(ctx, kit.ChatTarget{ChatID: m.ChatID}, textAdminsOnly, nil)
	return false
}

func describeServices(subs domain.Subscriptions) string {
	var names []string
	for _, svc := range domain.Services {
		if subs.Enabled(svc) {
			names = append(names, serviceInfoLabels[svc])
		}
	}
	if len(names) == 0 {
		return textNoServices
	}
	return strings.Join(names, ", ")
}

// selectionMarkup renders the service keyboard, one service per row with a
// check mark on enabled ones, plus the confirm row.
func selectionMarkup(subs domain.Subscriptions) any {
	kb := tgui.NewInline()
	for _, svc := range domain.Services {
		label := serviceButtonLabels[svc]
		if subs.Enabled(svc) {
			label = " ✅ " + label
		}
		kb.Row(tgui.Btn(label, callbackTogglePrefix+string(svc)))
	}
	kb.Row(tgui.Btn(btnConfirmSelection, callbackConfirmChoices))
	return kb.Markup()
}
