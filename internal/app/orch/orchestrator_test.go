package orch_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/app/orch"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/protocol"
	json "github.com/goccy/go-json"
)

// memSignal records frames in memory. full simulates a saturated queue.
type memSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (s *memSignal) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrClosed
	}
	if s.full {
		return core.ErrBackpressure
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *memSignal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// drain returns and forgets everything received so far.
func (s *memSignal) drain(t *testing.T) []protocol.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := protocol.JSONCodec{}.Decode(f)
		if err != nil {
			t.Fatalf("decode frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	s.frames = nil
	return out
}

type harness struct {
	o     *orch.Orchestrator
	conns map[domain.ConnID]*memSignal
}

func newHarness(t *testing.T, ids ...domain.ConnID) *harness {
	t.Helper()
	h := &harness{
		o:     orch.New(orch.Options{}),
		conns: make(map[domain.ConnID]*memSignal),
	}
	for _, id := range ids {
		h.connect(t, id)
	}
	return h
}

func (h *harness) connect(t *testing.T, id domain.ConnID) *memSignal {
	t.Helper()
	sig := &memSignal{}
	if err := h.o.Connect(app.NewConn(id, "token-"+string(id), sig, nil)); err != nil {
		t.Fatalf("Connect(%s): %v", id, err)
	}
	h.conns[id] = sig
	return sig
}

func (h *harness) view(t *testing.T, id domain.ConnID) orch.ConnView {
	t.Helper()
	v, ok := h.o.View(id)
	if !ok {
		t.Fatalf("connection %s not registered", id)
	}
	return v
}

func expectKinds(t *testing.T, who string, got []protocol.Envelope, want ...protocol.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s received %d events %v, want %v", who, len(got), kinds(got), want)
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Fatalf("%s event %d = %q, want %q (all: %v)", who, i, got[i].Type, want[i], kinds(got))
		}
	}
}

func kinds(envs []protocol.Envelope) []protocol.Kind {
	out := make([]protocol.Kind, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}

func decodeFound(t *testing.T, env protocol.Envelope) bool {
	t.Helper()
	var p protocol.Found
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode found: %v", err)
	}
	return p.IsInitiator
}

func decodeFoundRoom(t *testing.T, env protocol.Envelope) protocol.FoundRoom {
	t.Helper()
	var p protocol.FoundRoom
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode found_room: %v", err)
	}
	return p
}

func decodeRoomError(t *testing.T, env protocol.Envelope) protocol.RoomError {
	t.Helper()
	var p protocol.RoomError
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode room_error: %v", err)
	}
	return p
}

func assertLinked(t *testing.T, h *harness, a, b domain.ConnID) {
	t.Helper()
	va, vb := h.view(t, a), h.view(t, b)
	if va.Partner != b || vb.Partner != a {
		t.Fatalf("not linked symmetrically: %s->%q, %s->%q", a, va.Partner, b, vb.Partner)
	}
	if va.State != domain.StatePaired || vb.State != domain.StatePaired {
		t.Fatalf("states = %v/%v, want paired", va.State, vb.State)
	}
}

func TestFind_PairsWaiterWithNewcomer(t *testing.T) {
	h := newHarness(t, "A", "B")

	if err := h.o.Find("A"); err != nil {
		t.Fatalf("Find(A): %v", err)
	}
	if got := h.view(t, "A").State; got != domain.StateWaiting {
		t.Fatalf("A state = %v, want waiting", got)
	}
	expectKinds(t, "A", h.conns["A"].drain(t))

	if err := h.o.Find("B"); err != nil {
		t.Fatalf("Find(B): %v", err)
	}

	a := h.conns["A"].drain(t)
	b := h.conns["B"].drain(t)
	expectKinds(t, "A", a, protocol.KindFound)
	expectKinds(t, "B", b, protocol.KindFound)
	if decodeFound(t, a[0]) {
		t.Error("waiter A must not be the initiator")
	}
	if !decodeFound(t, b[0]) {
		t.Error("newcomer B must be the initiator")
	}
	assertLinked(t, h, "A", "B")
	if st := h.o.Stats(); st.Waiting || st.Pairs != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestFind_RepeatedByWaiterIsNoop(t *testing.T) {
	h := newHarness(t, "A")
	_ = h.o.Find("A")
	_ = h.o.Find("A")

	if got := h.view(t, "A"); got.State != domain.StateWaiting || got.Partner != "" {
		t.Fatalf("A = %+v, want waiting alone", got)
	}
	expectKinds(t, "A", h.conns["A"].drain(t))
}

func TestFind_NextUnpairsFirst(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	_ = h.o.Find("A")
	_ = h.o.Find("B")
	h.conns["A"].drain(t)
	h.conns["B"].drain(t)

	// B skips A and parks; C then gets B.
	if err := h.o.Find("B"); err != nil {
		t.Fatalf("Find(B): %v", err)
	}
	expectKinds(t, "A", h.conns["A"].drain(t), protocol.KindLeave)
	if got := h.view(t, "A"); got.Partner != "" || got.State != domain.StateIdle {
		t.Fatalf("A after next = %+v", got)
	}
	if got := h.view(t, "B").State; got != domain.StateWaiting {
		t.Fatalf("B state = %v, want waiting", got)
	}

	_ = h.o.Find("C")
	assertLinked(t, h, "B", "C")
}

func TestFind_ConcurrentProducesWholePairs(t *testing.T) {
	const n = 64
	h := newHarness(t)
	ids := make([]domain.ConnID, n)
	for i := range ids {
		ids[i] = domain.ConnID(fmt.Sprintf("c%02d", i))
		h.connect(t, ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ConnID) {
			defer wg.Done()
			_ = h.o.Find(id)
		}(id)
	}
	wg.Wait()

	st := h.o.Stats()
	if st.Pairs != n/2 || st.Waiting {
		t.Fatalf("stats = %+v, want %d pairs and an empty slot", st, n/2)
	}
	initiators := 0
	for _, id := range ids {
		v := h.view(t, id)
		if p := h.view(t, v.Partner); p.Partner != id {
			t.Fatalf("asymmetric link %s->%s->%s", id, v.Partner, p.Partner)
		}
		events := h.conns[id].drain(t)
		expectKinds(t, string(id), events, protocol.KindFound)
		if decodeFound(t, events[0]) {
			initiators++
		}
	}
	if initiators != n/2 {
		t.Fatalf("initiators = %d, want exactly one per pair (%d)", initiators, n/2)
	}
}

func TestRoom_CreateAndJoin(t *testing.T) {
	h := newHarness(t, "A", "B")

	if err := h.o.CreateRoom("A", "x"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	expectKinds(t, "A", h.conns["A"].drain(t), protocol.KindRoomCreated)
	if got := h.view(t, "A"); got.State != domain.StateRoomPending || got.RoomID != "x" {
		t.Fatalf("A = %+v, want room_pending in x", got)
	}

	if err := h.o.JoinRoom("B", "x"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	a := h.conns["A"].drain(t)
	b := h.conns["B"].drain(t)
	expectKinds(t, "A", a, protocol.KindFoundRoom)
	expectKinds(t, "B", b, protocol.KindFoundRoom)
	if got := decodeFoundRoom(t, a[0]); got.RoomID != "x" || !got.IsInitiator {
		t.Errorf("owner got %+v, want x initiator", got)
	}
	if got := decodeFoundRoom(t, b[0]); got.RoomID != "x" || got.IsInitiator {
		t.Errorf("joiner got %+v, want x non-initiator", got)
	}
	assertLinked(t, h, "A", "B")
	if info, ok := h.o.RoomInfo("x"); !ok || !info.InUse {
		t.Fatalf("room x = %+v, %v; want in use", info, ok)
	}
}

func TestRoom_ConcurrentCreateOneWins(t *testing.T) {
	const n = 32
	h := newHarness(t)
	ids := make([]domain.ConnID, n)
	for i := range ids {
		ids[i] = domain.ConnID(fmt.Sprintf("c%02d", i))
		h.connect(t, ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ConnID) {
			defer wg.Done()
			_ = h.o.CreateRoom(id, "x")
		}(id)
	}
	wg.Wait()

	var winner domain.ConnID
	for _, id := range ids {
		events := h.conns[id].drain(t)
		if len(events) != 1 {
			t.Fatalf("%s received %v, want exactly one event", id, kinds(events))
		}
		switch events[0].Type {
		case protocol.KindRoomCreated:
			if winner != "" {
				t.Fatalf("both %s and %s created room x", winner, id)
			}
			winner = id
		case protocol.KindRoomError:
			if got := decodeRoomError(t, events[0]); got.Kind != string(domain.ErrKindAlreadyExists) {
				t.Fatalf("%s room_error = %+v, want already_exists", id, got)
			}
		default:
			t.Fatalf("%s got unexpected %q", id, events[0].Type)
		}
	}
	if winner == "" {
		t.Fatal("no connection created room x")
	}
	if st := h.o.Stats(); st.Rooms != 1 {
		t.Fatalf("rooms = %d, want 1", st.Rooms)
	}
	for _, id := range ids {
		v := h.view(t, id)
		if id == winner {
			if v.State != domain.StateRoomPending || v.RoomID != "x" {
				t.Fatalf("winner %s = %+v", id, v)
			}
		} else if v.State != domain.StateIdle || v.RoomID != "" {
			t.Fatalf("loser %s = %+v, want untouched", id, v)
		}
	}
}

func TestRoom_CreateCollisionKeepsOwner(t *testing.T) {
	h := newHarness(t, "A", "C")
	_ = h.o.CreateRoom("A", "x")
	h.conns["A"].drain(t)

	err := h.o.CreateRoom("C", "x")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("error = %v, want AlreadyExists", err)
	}
	c := h.conns["C"].drain(t)
	expectKinds(t, "C", c, protocol.KindRoomError)
	if got := decodeRoomError(t, c[0]); got.Kind != string(domain.ErrKindAlreadyExists) || got.RoomID != "x" {
		t.Fatalf("room_error = %+v", got)
	}
	expectKinds(t, "A", h.conns["A"].drain(t))

	// A's room still works.
	if err := h.o.JoinRoom("C", "x"); err != nil {
		t.Fatalf("JoinRoom after collision: %v", err)
	}
	assertLinked(t, h, "A", "C")
}

func TestRoom_Errors(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	_ = h.o.CreateRoom("A", "x")
	_ = h.o.JoinRoom("B", "x")
	for _, s := range h.conns {
		s.drain(t)
	}

	tests := []struct {
		name string
		do   func() error
		want error
	}{
		{"create empty", func() error { return h.o.CreateRoom("C", "  ") }, domain.ErrMissingID},
		{"join empty", func() error { return h.o.JoinRoom("C", "") }, domain.ErrMissingID},
		{"join unknown", func() error { return h.o.JoinRoom("C", "nope") }, domain.ErrNotFound},
		{"join full", func() error { return h.o.JoinRoom("C", "x") }, domain.ErrNotFound},
		{"create too long", func() error { return h.o.CreateRoom("C", strings.Repeat("x", 65)) }, domain.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			expectKinds(t, "C", h.conns["C"].drain(t), protocol.KindRoomError)
			expectKinds(t, "A", h.conns["A"].drain(t))
			expectKinds(t, "B", h.conns["B"].drain(t))
		})
	}
	assertLinked(t, h, "A", "B")
}

func TestRoom_FailedJoinKeepsCurrentPairing(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.Find("A")
	_ = h.o.Find("B")
	h.conns["A"].drain(t)
	h.conns["B"].drain(t)

	if err := h.o.JoinRoom("B", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
	expectKinds(t, "A", h.conns["A"].drain(t))
	assertLinked(t, h, "A", "B")
}

func TestRoom_OwnerGoneDropsRoom(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.CreateRoom("A", "x")
	// room entry outlived its owner
	room, _ := h.o.Rooms.Get("x")
	room.Owner = "ghost"

	err := h.o.JoinRoom("B", "x")
	if !errors.Is(err, domain.ErrOwnerUnavailable) {
		t.Fatalf("error = %v, want OwnerUnavailable", err)
	}
	if _, ok := h.o.RoomInfo("x"); ok {
		t.Fatal("stale room should be deleted")
	}
}

func TestRoom_RateLimited(t *testing.T) {
	o := orch.New(orch.Options{Limiter: app.NewRoomRateLimiter(1, time.Minute)})
	sig := &memSignal{}
	_ = o.Connect(app.NewConn("A", "", sig, nil))

	_ = o.JoinRoom("A", "nope")
	if err := o.CreateRoom("A", "x"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("error = %v, want RateLimited", err)
	}
	if _, ok := o.RoomInfo("x"); ok {
		t.Fatal("limited request must not create the room")
	}
}

// The limit is checked before the room id, so an exhausted window hides
// missing_id.
func TestRoom_RateLimitPrecedesIDValidation(t *testing.T) {
	o := orch.New(orch.Options{Limiter: app.NewRoomRateLimiter(1, time.Minute)})
	sig := &memSignal{}
	_ = o.Connect(app.NewConn("A", "", sig, nil))

	if err := o.CreateRoom("A", ""); !errors.Is(err, domain.ErrMissingID) {
		t.Fatalf("first empty id error = %v, want MissingID", err)
	}
	if err := o.CreateRoom("A", ""); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("second empty id error = %v, want RateLimited", err)
	}

	events := sig.drain(t)
	expectKinds(t, "A", events, protocol.KindRoomError, protocol.KindRoomError)
	if got := decodeRoomError(t, events[1]); got.Kind != string(domain.ErrKindRateLimited) {
		t.Fatalf("second room_error = %+v, want rate_limited", got)
	}
}

func TestRoom_JoinerLeavesReopensRoom(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	_ = h.o.CreateRoom("A", "x")
	_ = h.o.JoinRoom("B", "x")
	h.conns["A"].drain(t)

	h.o.Disconnect("B")

	expectKinds(t, "A", h.conns["A"].drain(t), protocol.KindLeave)
	if got := h.view(t, "A"); got.State != domain.StateRoomPending || got.RoomID != "x" || got.Partner != "" {
		t.Fatalf("owner after joiner left = %+v", got)
	}
	if err := h.o.JoinRoom("C", "x"); err != nil {
		t.Fatalf("room should accept a new joiner: %v", err)
	}
	assertLinked(t, h, "A", "C")
}

func TestForward(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.Find("A")
	_ = h.o.Find("B")
	h.conns["A"].drain(t)
	h.conns["B"].drain(t)

	msgs := []struct {
		kind    protocol.Kind
		payload string
	}{
		{protocol.KindOffer, `{"type":"offer","sdp":"v=0"}`},
		{protocol.KindICE, `{"candidate":"candidate:1","sdpMid":"0"}`},
		{protocol.KindICE, `{"candidate":"candidate:2","sdpMid":"0"}`},
	}
	for _, m := range msgs {
		if err := h.o.Forward("B", m.kind, []byte(m.payload)); err != nil {
			t.Fatalf("Forward: %v", err)
		}
	}

	got := h.conns["A"].drain(t)
	expectKinds(t, "A", got, protocol.KindOffer, protocol.KindICE, protocol.KindICE)
	for i, m := range msgs {
		if string(got[i].Payload) != m.payload {
			t.Errorf("payload %d = %s, want %s", i, got[i].Payload, m.payload)
		}
	}
	expectKinds(t, "B", h.conns["B"].drain(t))
}

// Messages from an unpaired connection vanish without an error.
func TestForward_UnpairedIsSilentlyDropped(t *testing.T) {
	h := newHarness(t, "A", "B")

	if err := h.o.Forward("A", protocol.KindOffer, []byte(`{"sdp":"x"}`)); err != nil {
		t.Fatalf("Forward without partner returned %v", err)
	}
	for id, s := range h.conns {
		expectKinds(t, string(id), s.drain(t))
	}
}

func TestForward_BackpressureKicksRecipient(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.Find("A")
	_ = h.o.Find("B")
	h.conns["A"].full = true

	_ = h.o.Forward("B", protocol.KindOffer, []byte(`{}`))

	if !h.conns["A"].closed {
		t.Fatal("slow recipient should be closed by the default policy")
	}
}

func TestForward_BackpressureDropPolicy(t *testing.T) {
	o := orch.New(orch.Options{Policy: app.DropPolicy{}})
	a, b := &memSignal{}, &memSignal{}
	_ = o.Connect(app.NewConn("A", "", a, nil))
	_ = o.Connect(app.NewConn("B", "", b, nil))
	_ = o.Find("A")
	_ = o.Find("B")
	a.full = true

	_ = o.Forward("B", protocol.KindOffer, []byte(`{}`))

	if a.closed {
		t.Fatal("drop policy must keep the recipient open")
	}
}

func TestDisconnect_NotifiesPartner(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.Find("A")
	_ = h.o.Find("B")
	h.conns["A"].drain(t)

	h.o.Disconnect("B")

	expectKinds(t, "A", h.conns["A"].drain(t), protocol.KindLeave)
	if got := h.view(t, "A"); got.Partner != "" || got.State != domain.StateIdle {
		t.Fatalf("A = %+v, want idle and unpaired", got)
	}
	if _, ok := h.o.View("B"); ok {
		t.Fatal("B should be unregistered")
	}
}

func TestDisconnect_OwnerClosesRoom(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	_ = h.o.CreateRoom("A", "x")
	_ = h.o.JoinRoom("B", "x")
	h.conns["B"].drain(t)

	h.o.Disconnect("A")

	expectKinds(t, "B", h.conns["B"].drain(t), protocol.KindRoomClosed, protocol.KindLeave)
	if got := h.view(t, "B"); got.RoomID != "" || got.Partner != "" || got.State != domain.StateIdle {
		t.Fatalf("B = %+v, want no room, no partner", got)
	}
	if _, ok := h.o.RoomInfo("x"); ok {
		t.Fatal("room x should be gone")
	}
	if err := h.o.CreateRoom("C", "x"); err != nil {
		t.Fatalf("recreate x: %v", err)
	}
}

func TestDisconnect_ClearsWaitingSlot(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.Find("A")

	h.o.Disconnect("A")

	if h.o.Stats().Waiting {
		t.Fatal("slot should be empty")
	}
	_ = h.o.Find("B")
	if got := h.view(t, "B").State; got != domain.StateWaiting {
		t.Fatalf("B state = %v, want waiting (not matched with a ghost)", got)
	}
}

func TestLeaveThenDisconnectIsIdempotent(t *testing.T) {
	h := newHarness(t, "A", "B")
	_ = h.o.CreateRoom("A", "x")
	_ = h.o.JoinRoom("B", "x")
	h.conns["B"].drain(t)

	h.o.Leave("A")
	h.o.Leave("A")
	h.o.Disconnect("A")
	h.o.Disconnect("A")

	expectKinds(t, "B", h.conns["B"].drain(t), protocol.KindRoomClosed, protocol.KindLeave)
	if st := h.o.Stats(); st.Rooms != 0 || st.Connections != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLeave_KeepsConnectionUsable(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	_ = h.o.Find("A")
	_ = h.o.Find("B")

	h.o.Leave("B")
	if got := h.view(t, "B"); got.State != domain.StateIdle {
		t.Fatalf("B after leave = %+v", got)
	}

	_ = h.o.Find("C")
	_ = h.o.Find("B")
	assertLinked(t, h, "C", "B")
}

func TestUnknownConnection(t *testing.T) {
	h := newHarness(t)
	if err := h.o.Find("ghost"); !errors.Is(err, orch.ErrUnknownConn) {
		t.Fatalf("Find error = %v", err)
	}
	if err := h.o.CreateRoom("ghost", "x"); !errors.Is(err, orch.ErrUnknownConn) {
		t.Fatalf("CreateRoom error = %v", err)
	}
	h.o.Leave("ghost")
	h.o.Disconnect("ghost")
}

func TestCloseAllKicksEveryone(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.o.CloseAll()
	for id, s := range h.conns {
		if !s.closed {
			t.Errorf("%s not closed", id)
		}
	}
}
