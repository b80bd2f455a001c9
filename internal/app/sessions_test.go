package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/skillswap/live/internal/domain"
)

func TestInitializeSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.manager.InitializeSession(ctx, "ex1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if view.Status != domain.StatusWaiting {
		t.Fatalf("status=%s, want waiting", view.Status)
	}
	if view.InitiatorJoined || view.ProviderJoined {
		t.Fatalf("joined flags set on creation")
	}
	if !view.IsInitiator || view.InitiatorID != "u1" || view.ProviderID != "u2" {
		t.Fatalf("roles wrong: %+v", view)
	}
	if view.Token == "" {
		t.Fatalf("no token issued")
	}
	if view.StartTime == nil {
		t.Fatalf("startTime not stamped")
	}
}

func TestInitializeSession_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.InitializeSession(ctx, "ex1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	second, err := f.manager.InitializeSession(ctx, "ex1", "u2")
	if err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}
	// The reused view is tagged with the second caller's role.
	if second.IsInitiator {
		t.Fatalf("u2 reported as initiator")
	}
}

func TestInitializeSession_IdempotentConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	ids := make([]domain.SessionID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := domain.UserID("u1")
			if i%2 == 1 {
				caller = "u2"
			}
			view, err := f.manager.InitializeSession(ctx, "ex1", caller)
			if err != nil {
				t.Errorf("initialize: %v", err)
				return
			}
			ids[i] = view.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent initialize produced distinct sessions: %s vs %s", ids[0], ids[i])
		}
	}
}

func TestInitializeSession_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.InitializeSession(ctx, "missing", "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if _, err := f.manager.InitializeSession(ctx, "ex1", "stranger"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}

	f.exchanges.Put(domain.Exchange{ID: "ex2", RequesterID: "u1", ProviderID: "u2", Status: domain.ExchangePending})
	if _, err := f.manager.InitializeSession(ctx, "ex2", "u1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err=%v, want ErrInvalidState for pending exchange", err)
	}
}

func TestJoinSession_ActivatesWhenBothIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.connect("u1")
	c2 := f.connect("u2")

	view, err := f.manager.InitializeSession(ctx, "ex1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	after1, err := f.manager.JoinSession(view.ID, view.Token, "u1", "conn-u1")
	if err != nil {
		t.Fatalf("u1 join: %v", err)
	}
	if !after1.InitiatorJoined || after1.Status != domain.StatusWaiting {
		t.Fatalf("after u1: joined=%v status=%s, want joined waiting", after1.InitiatorJoined, after1.Status)
	}

	after2, err := f.manager.JoinSession(view.ID, view.Token, "u2", "conn-u2")
	if err != nil {
		t.Fatalf("u2 join: %v", err)
	}
	if !after2.BothJoined() || after2.Status != domain.StatusActive {
		t.Fatalf("after u2: %+v, want both joined active", after2.LiveSession)
	}
	if after2.StartTime == nil {
		t.Fatalf("startTime not stamped on activation")
	}

	for _, c := range []*fakeConn{c1, c2} {
		if !c.hasEvent(t, domain.EventSessionState) {
			t.Fatalf("conn %s missing session_state, got %v", c.id, c.events(t))
		}
		if !c.hasEvent(t, domain.EventUserJoinedSession) {
			t.Fatalf("conn %s missing user_joined_session", c.id)
		}
	}
}

func TestJoinSession_BadTokenMutatesNothing(t *testing.T) {
	f := newFixture(t)
	view, err := f.manager.InitializeSession(context.Background(), "ex1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := f.manager.JoinSession(view.ID, "wrong-token", "u1", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}

	sess, err := f.store.GetByID(view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.InitiatorJoined || sess.ProviderJoined || sess.Status != domain.StatusWaiting {
		t.Fatalf("rejected join mutated session: %+v", sess)
	}
}

func TestJoinSession_EndedRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.manager.InitializeSession(ctx, "ex1", "u1")

	if err := f.manager.EndSession(ctx, view.ID, "u1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := f.manager.JoinSession(view.ID, view.Token, "u2", ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err=%v, want ErrInvalidState", err)
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.manager.InitializeSession(ctx, "ex1", "u1")

	_, _ = f.manager.JoinSession(view.ID, view.Token, "u1", "")
	_, _ = f.manager.JoinSession(view.ID, view.Token, "u2", "")

	// A repeat join of an active session must not revert it to waiting.
	again, err := f.manager.JoinSession(view.ID, view.Token, "u1", "")
	if err != nil {
		t.Fatalf("repeat join: %v", err)
	}
	if again.Status != domain.StatusActive {
		t.Fatalf("status=%s after repeat join, want active", again.Status)
	}

	if err := f.manager.EndSession(ctx, view.ID, "u2"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := f.manager.EndSession(ctx, view.ID, "u1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("double end err=%v, want ErrInvalidState", err)
	}
	sess, _ := f.store.GetByID(view.ID)
	if sess.EndTime == nil {
		t.Fatalf("endTime not stamped")
	}
}

func TestScreenShareMutualExclusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.manager.InitializeSession(ctx, "ex1", "u1")

	if err := f.manager.StartScreenShare(view.ID, "u1"); err != nil {
		t.Fatalf("u1 start: %v", err)
	}
	if err := f.manager.StartScreenShare(view.ID, "u2"); !errors.Is(err, domain.ErrAlreadyInProgress) {
		t.Fatalf("u2 start err=%v, want ErrAlreadyInProgress", err)
	}
	// The holder cannot start twice either.
	if err := f.manager.StartScreenShare(view.ID, "u1"); !errors.Is(err, domain.ErrAlreadyInProgress) {
		t.Fatalf("u1 restart err=%v, want ErrAlreadyInProgress", err)
	}

	// Only the holder may stop.
	if err := f.manager.StopScreenShare(view.ID, "u2"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("u2 stop err=%v, want ErrUnauthorized", err)
	}
	if err := f.manager.StopScreenShare(view.ID, "u1"); err != nil {
		t.Fatalf("u1 stop: %v", err)
	}
	if err := f.manager.StartScreenShare(view.ID, "u2"); err != nil {
		t.Fatalf("u2 start after release: %v", err)
	}
}

func TestScreenShareConcurrentRace(t *testing.T) {
	f := newFixture(t)
	view, _ := f.manager.InitializeSession(context.Background(), "ex1", "u1")

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := domain.UserID("u1")
			if i%2 == 1 {
				caller = "u2"
			}
			if err := f.manager.StartScreenShare(view.ID, caller); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins=%d, want exactly 1", wins)
	}
	sess, _ := f.store.GetByID(view.ID)
	if sess.ScreenShareUserID != "u1" && sess.ScreenShareUserID != "u2" {
		t.Fatalf("screenShareUserId=%q, want a participant", sess.ScreenShareUserID)
	}
}

func TestSyncEditor_RequiresActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect("u1")
	c2 := f.connect("u2")
	view, _ := f.manager.InitializeSession(ctx, "ex1", "u1")

	if err := f.manager.SyncEditorOperation(view.ID, "u1", "insert", []byte(`{"pos":0}`)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err=%v, want ErrInvalidState while waiting", err)
	}

	_, _ = f.manager.JoinSession(view.ID, view.Token, "u1", "conn-u1")
	_, _ = f.manager.JoinSession(view.ID, view.Token, "u2", "conn-u2")

	if err := f.manager.SyncEditorOperation(view.ID, "u1", "insert", []byte(`{"pos":0}`)); err != nil {
		t.Fatalf("sync on active session: %v", err)
	}
	if !c2.hasEvent(t, domain.EventSyncEditor) {
		t.Fatalf("u2 did not receive sync_editor_operation, got %v", c2.events(t))
	}
}

func TestLogChatActivity_RequiresActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, _ := f.manager.InitializeSession(ctx, "ex1", "u1")

	if err := f.manager.LogChatActivity(view.ID, "u1", "text"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err=%v, want ErrInvalidState while waiting", err)
	}
	if err := f.manager.LogChatActivity(view.ID, "stranger", "text"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}
}

func TestToggleMedia_BroadcastOnly(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect("u1")
	c2 := f.connect("u2")
	view, _ := f.manager.InitializeSession(context.Background(), "ex1", "u1")

	if err := f.manager.ToggleAudio(view.ID, "u1", false); err != nil {
		t.Fatalf("toggle audio: %v", err)
	}
	if err := f.manager.ToggleVideo(view.ID, "u2", true); err != nil {
		t.Fatalf("toggle video: %v", err)
	}
	if err := f.manager.ToggleAudio(view.ID, "stranger", false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}
	if !c2.hasEvent(t, domain.EventAudioToggled) || !c1.hasEvent(t, domain.EventVideoToggled) {
		t.Fatalf("toggle events missing: u1=%v u2=%v", c1.events(t), c2.events(t))
	}
}

// Full walk of the reference scenario: create, join both sides, screen
// share collision, disconnect, end.
func TestSessionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.connect("u1")
	c2 := f.connect("u2")

	view, err := f.manager.InitializeSession(ctx, "ex1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, _ = f.manager.JoinSession(view.ID, view.Token, "u1", "conn-u1")
	after, _ := f.manager.JoinSession(view.ID, view.Token, "u2", "conn-u2")
	if after.Status != domain.StatusActive {
		t.Fatalf("status=%s, want active", after.Status)
	}

	if err := f.manager.StartScreenShare(view.ID, "u1"); err != nil {
		t.Fatalf("screen share: %v", err)
	}
	if err := f.manager.StartScreenShare(view.ID, "u2"); !errors.Is(err, domain.ErrAlreadyInProgress) {
		t.Fatalf("collision err=%v", err)
	}

	// u2's connection drops: presence entry removed, u1 told, durable
	// status untouched.
	uid, ok := f.presence.Unregister("conn-u2")
	if !ok || uid != "u2" {
		t.Fatalf("unregister: uid=%s ok=%v", uid, ok)
	}
	f.manager.HandleDisconnect(uid)
	if !c1.hasEvent(t, domain.EventUserLeftSession) {
		t.Fatalf("u1 missing user_left_session, got %v", c1.events(t))
	}
	sess, _ := f.store.GetByID(view.ID)
	if sess.Status != domain.StatusActive {
		t.Fatalf("status=%s after disconnect, want active", sess.Status)
	}

	if err := f.manager.EndSession(ctx, view.ID, "u1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := f.manager.JoinSession(view.ID, view.Token, "u2", ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("join after end err=%v, want ErrInvalidState", err)
	}
	if !c1.hasEvent(t, domain.EventSessionEnded) {
		t.Fatalf("u1 missing session_ended")
	}
	_ = c2 // c2 is disconnected by then
}

func TestVerifyToken(t *testing.T) {
	f := newFixture(t)
	view, _ := f.manager.InitializeSession(context.Background(), "ex1", "u1")

	ok, err := f.manager.VerifyToken(view.ID, view.Token)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want valid", ok, err)
	}
	ok, err = f.manager.VerifyToken(view.ID, "nope")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want invalid", ok, err)
	}
	if _, err := f.manager.VerifyToken("missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
