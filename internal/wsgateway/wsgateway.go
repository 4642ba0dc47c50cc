// Package wsgateway implements the WebSocket multiplexing gateway of spec
// §4.9/§6.3: one session per connection, many concurrent subscriptions
// multiplexed over it, a serializing mailbox for outbound frames, and a
// ping/pong heartbeat that closes dead sessions. Grounded on
// orbas1-Synnergy's gorilla/websocket session-loop idiom, generalized
// from its single-stream framing to the spec's subscribe/unsubscribe
// envelope protocol.
package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fuelstreams/internal/auth"
	"fuelstreams/internal/broker"
	"fuelstreams/internal/errs"
	"fuelstreams/internal/metrics"
	"fuelstreams/internal/subject"
	"fuelstreams/internal/subscription"
)

var errInvalidDeliverPolicy = errs.New(errs.KindProtocol, errs.ReasonInvalidPayload, "deliverPolicy must be \"new\" or {fromBlock:{blockHeight}}")

func errUnsupportedSubject(pattern string) error {
	return errs.New(errs.KindProtocol, errs.ReasonUnsupported, "no entity matches subject pattern "+pattern)
}

// Options configures a Gateway's heartbeat and delivery behavior
// (ws.ping_interval_ms / ws.heartbeat_timeout_ms / ws.max_workers).
type Options struct {
	PingInterval     time.Duration
	HeartbeatTimeout time.Duration
	MailboxCapacity  int
	Pacing           subscription.Pacing
}

// clientEnvelope is the client -> server frame shape (spec §6.3).
type clientEnvelope struct {
	Subscribe   *subscribePayload `json:"subscribe,omitempty"`
	Unsubscribe *subscribePayload `json:"unsubscribe,omitempty"`
}

type subscribePayload struct {
	Subject       string            `json:"subject"`
	Params        map[string]string `json:"params"`
	DeliverPolicy json.RawMessage   `json:"deliverPolicy"`
}

// subscriptionID derives spec §3.1's `hash(api_key_id, payload)`: stable
// across reconnects so two identical subscribe payloads from the same key
// produce the same id and at most one accounting increment (invariant P6).
// xxhash over a canonicalized payload (sorted params) gives a deterministic,
// fast non-cryptographic digest -- exactly the low-stakes internal-id
// hashing role it plays elsewhere in the pack.
func subscriptionID(apiKeyID string, p subscribePayload) string {
	h := xxhash.New()
	_, _ = h.WriteString(apiKeyID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(p.Subject)
	_, _ = h.WriteString("\x00")

	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(p.Params[k])
		_, _ = h.WriteString("\x00")
	}
	_, _ = h.Write(p.DeliverPolicy)

	return strconv.FormatUint(h.Sum64(), 16)
}

// serverEnvelope is the server -> client frame shape (spec §6.3).
type serverEnvelope struct {
	Subscribed   *subscribedAck `json:"subscribed,omitempty"`
	Unsubscribed *subscribedAck `json:"unsubscribed,omitempty"`
	Response     *response      `json:"response,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type subscribedAck struct {
	ID string `json:"id"`
}

type response struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Store is the historical read surface a Gateway's subscriptions draw on.
type Store = subscription.Historical

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway upgrades HTTP requests to WebSocket sessions and runs the
// subscribe/unsubscribe protocol of spec §6.3 over each one.
type Gateway struct {
	Auth    *auth.Engine
	Store   Store
	Broker  broker.Broker
	Opts    Options
	Log     *logrus.Logger
	Head    func(ctx context.Context) (uint64, error)
	Metrics *metrics.Registry
}

// ServeHTTP upgrades the request and runs the session until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := g.Auth.Authorize(r.Context(), r, auth.ScopeLiveData)
	if err != nil {
		if g.Metrics != nil {
			if e, ok := errs.As(err); ok {
				g.Metrics.AuthRejected(string(e.Reason))
			}
		}
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := newSession(conn, key, g)
	if g.Metrics != nil {
		g.Metrics.WSSessionOpened()
		defer g.Metrics.WSSessionClosed()
	}
	if g.Log != nil {
		g.Log.WithFields(logrus.Fields{"session_id": s.id, "api_key_id": key.ID}).Info("websocket session opened")
	}
	s.run()
	if g.Log != nil {
		g.Log.WithField("session_id", s.id).Info("websocket session closed")
	}
}

type session struct {
	id   string
	conn *websocket.Conn
	key  *auth.APIKey
	gw   *Gateway

	mailbox chan serverEnvelope
	writeWG sync.WaitGroup

	mu   sync.Mutex
	subs map[string]context.CancelFunc

	lastActivity time.Time
	activityMu   sync.Mutex
}

func newSession(conn *websocket.Conn, key *auth.APIKey, gw *Gateway) *session {
	cap := gw.Opts.MailboxCapacity
	if cap <= 0 {
		cap = 256
	}
	return &session{
		id:           uuid.NewString(),
		conn:         conn,
		key:          key,
		gw:           gw,
		mailbox:      make(chan serverEnvelope, cap),
		subs:         map[string]context.CancelFunc{},
		lastActivity: now(),
	}
}

func now() time.Time { return time.Now() }

func (s *session) touch() {
	s.activityMu.Lock()
	s.lastActivity = now()
	s.activityMu.Unlock()
}

func (s *session) idleFor() time.Duration {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	return time.Since(s.lastActivity)
}

// run drives one session's lifetime: a writer goroutine draining the
// mailbox, a heartbeat goroutine, and the read loop, all torn down
// together on any one's exit (spec §6.3 "one task per session").
func (s *session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer s.closeAllSubscriptions()
	defer s.conn.Close()

	s.writeWG.Add(1)
	go s.writeLoop(ctx)
	defer s.writeWG.Wait()

	go s.heartbeatLoop(ctx, cancel)

	s.conn.SetPongHandler(func(string) error { s.touch(); return nil })

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.touch()

		var env clientEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.closeWithCode(websocket.CloseInvalidFramePayloadData, "invalid_payload")
			return
		}

		switch {
		case env.Subscribe != nil:
			if err := s.handleSubscribe(ctx, *env.Subscribe); err != nil {
				s.send(serverEnvelope{Error: err.Error()})
			}
		case env.Unsubscribe != nil:
			s.handleUnsubscribe(*env.Unsubscribe)
		default:
			s.closeWithCode(websocket.CloseUnsupportedData, "unsupported_message")
			return
		}
	}
}

func (s *session) writeLoop(ctx context.Context) {
	defer s.writeWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-s.mailbox:
			payload, err := json.Marshal(env)
			if err != nil {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *session) heartbeatLoop(ctx context.Context, cancel context.CancelFunc) {
	interval := s.gw.Opts.PingInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := s.gw.Opts.HeartbeatTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.idleFor() > timeout {
				s.closeWithCode(websocket.CloseGoingAway, "heartbeat_timeout")
				cancel()
				return
			}
			_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

func (s *session) send(env serverEnvelope) {
	select {
	case s.mailbox <- env:
	default: // mailbox full: drop rather than block the delivery task
	}
}

func (s *session) closeWithCode(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
}

func (s *session) closeAllSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.subs {
		cancel()
		s.gw.Auth.ReleaseSubscription(s.key)
		if s.gw.Metrics != nil {
			s.gw.Metrics.SubscriptionClosed()
		}
		delete(s.subs, id)
	}
}

// handleSubscribe validates and starts one subscription's delivery task
// (spec §6.3/§4.9: "each subscribe spawns an independent delivery task
// feeding the same send-half via a serializing mailbox").
func (s *session) handleSubscribe(ctx context.Context, p subscribePayload) error {
	entityID, ok := entityIDFromPattern(p.Subject)
	if !ok {
		return errUnsupportedSubject(p.Subject)
	}

	policy, err := decodeDeliverPolicy(p.DeliverPolicy)
	if err != nil {
		return err
	}

	// Identity is deterministic (spec §3.1 "id: hash(api_key_id, payload)")
	// so a reconnect with the same payload reuses the existing subscription
	// instead of double-counting against the quota (invariant P6).
	id := subscriptionID(s.key.ID, p)

	s.mu.Lock()
	if _, exists := s.subs[id]; exists {
		s.mu.Unlock()
		s.send(serverEnvelope{Subscribed: &subscribedAck{ID: id}})
		return nil
	}
	s.mu.Unlock()

	if err := s.gw.Auth.AcquireSubscription(s.key); err != nil {
		if s.gw.Metrics != nil {
			if e, ok := errs.As(err); ok {
				s.gw.Metrics.AuthRejected(string(e.Reason))
			}
		}
		return err
	}

	if policy.FromBlock > 0 && s.gw.Head != nil {
		head, err := s.gw.Head(ctx)
		if err == nil {
			if rerr := auth.CheckHistoricalReach(s.key, head, policy.FromBlock); rerr != nil {
				s.gw.Auth.ReleaseSubscription(s.key)
				if s.gw.Metrics != nil {
					if e, ok := errs.As(rerr); ok {
						s.gw.Metrics.AuthRejected(string(e.Reason))
					}
				}
				return rerr
			}
		}
	}

	s.mu.Lock()
	if _, exists := s.subs[id]; exists {
		s.mu.Unlock()
		s.gw.Auth.ReleaseSubscription(s.key)
		s.send(serverEnvelope{Subscribed: &subscribedAck{ID: id}})
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	s.subs[id] = cancel
	s.mu.Unlock()
	if s.gw.Metrics != nil {
		s.gw.Metrics.SubscriptionOpened()
	}

	engine := &subscription.Engine{Store: s.gw.Store, Broker: s.gw.Broker, Pacing: s.gw.Opts.Pacing}
	params := subscription.Params{
		EntityID:    entityID,
		Filters:     p.Params,
		LiveSubject: liveSubjectFor(entityID, p.Params),
		Policy:      policy,
	}

	items := make(chan subscription.Item, 64)
	go func() {
		if err := engine.Run(subCtx, params, items); err != nil && subCtx.Err() == nil {
			s.send(serverEnvelope{Error: err.Error()})
		}
	}()

	go s.deliver(id, items)

	s.send(serverEnvelope{Subscribed: &subscribedAck{ID: id}})
	return nil
}

func (s *session) deliver(id string, items <-chan subscription.Item) {
	for item := range items {
		s.send(serverEnvelope{Response: &response{Key: id, Data: json.RawMessage(item.Value)}})
	}
}

// handleUnsubscribe cancels the matching subscription by id and releases
// its quota slot (spec §4.9 "Unsubscribe cancels the matching task by
// subscription-id"). The client resends the same subscribe payload shape;
// the id is recomputed rather than carried over the wire.
func (s *session) handleUnsubscribe(p subscribePayload) {
	id := subscriptionID(s.key.ID, p)

	s.mu.Lock()
	cancel, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if !ok {
		s.send(serverEnvelope{Error: "unknown subscription id"})
		return
	}
	cancel()
	s.gw.Auth.ReleaseSubscription(s.key)
	if s.gw.Metrics != nil {
		s.gw.Metrics.SubscriptionClosed()
	}
	s.send(serverEnvelope{Unsubscribed: &subscribedAck{ID: id}})
}

// entityIDFromPattern finds the longest registered entity id that is a
// dotted prefix of pattern ("transactions.>" -> "transactions",
// "inputs.coin.*" -> "inputs.coin").
func entityIDFromPattern(pattern string) (string, bool) {
	segs := strings.Split(pattern, ".")
	for end := len(segs); end > 0; end-- {
		candidate := strings.Join(segs[:end], ".")
		if _, ok := subject.Lookup(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}

func liveSubjectFor(entityID string, params map[string]string) string {
	inst, err := subject.New(entityID, params)
	if err != nil {
		return entityID + ".>"
	}
	return inst.Parse()
}

type deliverPolicyWire struct {
	FromBlock *struct {
		BlockHeight uint64 `json:"blockHeight"`
	} `json:"fromBlock"`
}

// decodeDeliverPolicy parses the deliverPolicy union of spec §6.3:
// the bare string "new" (live-only), or {"fromBlock":{"blockHeight":N}}.
func decodeDeliverPolicy(raw json.RawMessage) (subscription.DeliverPolicy, error) {
	if len(raw) == 0 {
		return subscription.DeliverPolicy{}, errInvalidDeliverPolicy
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "new" {
			return subscription.DeliverPolicy{Live: true}, nil
		}
		return subscription.DeliverPolicy{}, errInvalidDeliverPolicy
	}

	var wire deliverPolicyWire
	if err := json.Unmarshal(raw, &wire); err != nil || wire.FromBlock == nil {
		return subscription.DeliverPolicy{}, errInvalidDeliverPolicy
	}
	return subscription.DeliverPolicy{FromBlock: wire.FromBlock.BlockHeight}, nil
}
