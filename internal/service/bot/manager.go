package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"uk.co.dudmesh.viberrelay/internal/model"
)

const (
	opProbe      = "get_account_info"
	opSend       = "send_message"
	opSetWebhook = "set_webhook"
)

type Config interface {
	RemoteTimeout() time.Duration
	ProbeConcurrency() int
	WebhookURL() string
}

type CredentialStore interface {
	ListBots(ctx context.Context) ([]model.BotCredentials, error)
}

type Remote interface {
	SendMessage(ctx context.Context, token string, message *model.OutboundMessage) (*model.SendResult, error)
	GetAccountInfo(ctx context.Context, token string) (*model.AccountInfo, error)
	SetWebhook(ctx context.Context, token string, url string, eventTypes []string) error
}

type Broadcaster interface {
	Publish(event model.Event)
}

type InitReport struct {
	Total  int                    `json:"total"`
	Active int                    `json:"active"`
	Failed map[model.BotID]string `json:"failed,omitempty"`
}

// Manager is the only owner of bot status. It is safe for concurrent use;
// operations on different bots never contend on a shared lock beyond the
// registry read lock.
type Manager struct {
	config      Config
	store       CredentialStore
	remote      Remote
	broadcaster Broadcaster
	logger      *log.Logger

	mu   sync.RWMutex
	bots map[model.BotID]*entry

	lifecycle sync.Mutex
	closing   bool
	inflight  sync.WaitGroup
}

func New(config Config, store CredentialStore, remote Remote, broadcaster Broadcaster) *Manager {
	return &Manager{
		config:      config,
		store:       store,
		remote:      remote,
		broadcaster: broadcaster,
		logger:      log.New("botmanager"),
		bots:        map[model.BotID]*entry{},
	}
}

// Initialize loads every active bot from the store and probes them
// concurrently. Only a store failure is returned as an error.
func (m *Manager) Initialize(ctx context.Context) (InitReport, error) {
	creds, err := m.store.ListBots(ctx)
	if err != nil {
		return InitReport{}, fmt.Errorf("loading bots: %w", err)
	}

	entries := m.register(creds)
	report := InitReport{Total: len(entries), Failed: map[model.BotID]string{}}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(m.config.ProbeConcurrency())
	for _, e := range entries {
		e := e
		g.Go(func() error {
			state := m.probe(ctx, e)
			mu.Lock()
			defer mu.Unlock()
			if state.Status == model.BotStatusActive {
				report.Active++
			} else {
				report.Failed[e.id] = state.LastError
			}
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Infof("initialized %d bots, %d active", report.Total, report.Active)
	for id, reason := range report.Failed {
		m.logger.Warnf("bot %s not active: %s", id, reason)
	}
	return report, nil
}

func (m *Manager) register(creds []model.BotCredentials) []*entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*entry, 0, len(creds))
	for _, c := range creds {
		if existing, ok := m.bots[c.ID]; ok {
			entries = append(entries, existing)
			continue
		}
		e := newEntry(c)
		m.bots[c.ID] = e
		botsByStatus.WithLabelValues(e.status.String()).Inc()
		m.logger.Debugf("registered bot %s (token %s)", c.ID, model.Fingerprint(c.Token))
		entries = append(entries, e)
	}
	return entries
}

func (m *Manager) lookup(id model.BotID) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.bots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrorBotNotFound, id)
	}
	return e, nil
}

func (m *Manager) entries() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*entry, 0, len(m.bots))
	for _, e := range m.bots {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	return entries
}

// GetBotStatus returns the cached state without touching the network.
func (m *Manager) GetBotStatus(id model.BotID) (model.BotState, error) {
	e, err := m.lookup(id)
	if err != nil {
		return model.BotState{}, err
	}
	return e.snapshot(), nil
}

func (m *Manager) ListBots() []model.BotState {
	entries := m.entries()
	states := make([]model.BotState, 0, len(entries))
	for _, e := range entries {
		states = append(states, e.snapshot())
	}
	return states
}

// RefreshBotStatus probes the platform and returns the resulting state.
// Remote failures are recorded in the state, not returned.
func (m *Manager) RefreshBotStatus(ctx context.Context, id model.BotID) (model.BotState, error) {
	e, err := m.lookup(id)
	if err != nil {
		return model.BotState{}, err
	}
	return m.probe(ctx, e), nil
}

// RefreshAll probes every registered bot.
func (m *Manager) RefreshAll(ctx context.Context) []model.BotState {
	entries := m.entries()
	states := make([]model.BotState, len(entries))

	g := new(errgroup.Group)
	g.SetLimit(m.config.ProbeConcurrency())
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			states[i] = m.probe(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return states
}

func (m *Manager) probe(ctx context.Context, e *entry) model.BotState {
	seq := e.next()

	callCtx, cancel := context.WithTimeout(ctx, m.config.RemoteTimeout())
	defer cancel()

	start := time.Now()
	account, err := m.remote.GetAccountInfo(callCtx, e.token)
	remoteDuration.WithLabelValues(opProbe).Observe(time.Since(start).Seconds())

	// a call abandoned by its caller says nothing about the platform
	if err != nil && ctx.Err() != nil {
		m.logger.Debugf("probe of bot %s abandoned: %v", e.id, ctx.Err())
		return e.snapshot()
	}

	status := model.BotStatusActive
	var cause error
	switch {
	case err == nil:
	case errors.Is(err, model.ErrorRemoteRejected):
		status = model.BotStatusDegraded
		cause = &model.AuthError{BotID: e.id, Cause: err}
	default:
		status = model.BotStatusUnreachable
		cause = asUnavailable(opProbe, err)
	}

	now := time.Now().UTC()
	state, previous, applied := e.apply(seq, func() {
		e.status = status
		e.cause = cause
		e.checkedAt = now
		if account != nil {
			e.account = account
			if e.name == "" {
				e.name = account.Name
			}
		}
	})
	if !applied {
		m.logger.Debugf("discarded stale probe result for bot %s", e.id)
		return state
	}

	probes.WithLabelValues(status.String()).Inc()
	trackTransition(previous, status)
	m.publish(ctx, model.EventBotStatusUpdate, e.id, state)
	if cause != nil && previous != status {
		m.logger.Warnf("bot %s is %s: %v", e.id, status, cause)
		m.publish(ctx, model.EventError, e.id, model.NewErrorPayload(cause))
	}
	return state
}

// SendMessage delivers message through the bot. Sends through one bot are
// serialized; the caller's ctx bounds both the wait for its turn and the call.
// A send abandoned by its caller returns the ctx error and leaves status alone.
func (m *Manager) SendMessage(ctx context.Context, id model.BotID, message *model.OutboundMessage) (*model.SendResult, error) {
	if err := message.Validate(); err != nil {
		messagesSent.WithLabelValues("invalid", sendResultLabel(err)).Inc()
		return nil, err
	}

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	if err := m.beginSend(); err != nil {
		return nil, err
	}
	defer m.inflight.Done()

	if err := e.acquireSend(ctx); err != nil {
		return nil, fmt.Errorf("waiting to send through bot %s: %w", id, err)
	}
	defer e.releaseSend()

	seq := e.next()

	callCtx, cancel := context.WithTimeout(ctx, m.config.RemoteTimeout())
	defer cancel()

	start := time.Now()
	result, err := m.remote.SendMessage(callCtx, e.token, message)
	remoteDuration.WithLabelValues(opSend).Observe(time.Since(start).Seconds())

	if err != nil && ctx.Err() != nil {
		messagesSent.WithLabelValues(string(message.Type), "cancelled").Inc()
		return nil, fmt.Errorf("sending through bot %s: %w", id, ctx.Err())
	}
	messagesSent.WithLabelValues(string(message.Type), sendResultLabel(err)).Inc()

	now := time.Now().UTC()
	switch {
	case err == nil:
		state, previous, applied := e.apply(seq, func() {
			e.status = model.BotStatusActive
			e.cause = nil
			e.checkedAt = now
		})
		if applied && previous != state.Status {
			trackTransition(previous, state.Status)
			m.logger.Infof("bot %s recovered after successful send", id)
			m.publish(ctx, model.EventBotStatusUpdate, id, state)
		}
		result.BotID = id
		m.publish(ctx, model.EventBotMessageSent, id, result)
		return result, nil

	case errors.Is(err, model.ErrorRemoteRejected):
		m.logger.Warnf("send through bot %s rejected: %v", id, err)
		m.publish(ctx, model.EventError, id, model.NewErrorPayload(err))
		return nil, err

	default:
		err = asUnavailable(opSend, err)
		state, previous, applied := e.apply(seq, func() {
			e.status = model.BotStatusUnreachable
			e.cause = err
			e.checkedAt = now
		})
		if applied && previous != state.Status {
			trackTransition(previous, state.Status)
			m.publish(ctx, model.EventBotStatusUpdate, id, state)
		}
		m.logger.Errorf("send through bot %s failed: %v", id, err)
		m.publish(ctx, model.EventError, id, model.NewErrorPayload(err))
		return nil, err
	}
}

// Observe records an inbound callback for a registered bot and forwards
// everything except the webhook handshake to subscribers.
func (m *Manager) Observe(id model.BotID, event *model.InboundEvent) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.observe(event)
	inboundEvents.WithLabelValues(string(event.Event)).Inc()

	if event.Event != model.InboundEventWebhook {
		m.broadcaster.Publish(model.NewEvent(model.EventBotMessage, id, event))
	}
	return nil
}

// RegisterWebhooks points every active bot's callbacks at the configured
// webhook URL. The platform calls the URL back while registering, so this
// must run once the HTTP server is accepting requests. Failures are logged
// and returned per bot.
func (m *Manager) RegisterWebhooks(ctx context.Context) map[model.BotID]error {
	failures := map[model.BotID]error{}
	base := m.config.WebhookURL()
	if base == "" {
		return failures
	}

	for _, e := range m.entries() {
		if e.snapshot().Status != model.BotStatusActive {
			continue
		}

		callback, err := webhookURL(base, e.id)
		if err != nil {
			failures[e.id] = err
			m.logger.Errorf("building webhook url for bot %s: %v", e.id, err)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, m.config.RemoteTimeout())
		start := time.Now()
		err = m.remote.SetWebhook(callCtx, e.token, callback, nil)
		remoteDuration.WithLabelValues(opSetWebhook).Observe(time.Since(start).Seconds())
		cancel()

		if err != nil {
			failures[e.id] = err
			m.logger.Errorf("registering webhook for bot %s: %v", e.id, err)
			m.publish(ctx, model.EventError, e.id, model.NewErrorPayload(err))
			continue
		}
		m.logger.Infof("registered webhook for bot %s", e.id)
	}
	return failures
}

// Shutdown rejects new sends and waits for in-flight ones until ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lifecycle.Lock()
	m.closing = true
	m.lifecycle.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("all in-flight sends finished")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight sends: %w", ctx.Err())
	}
}

func (m *Manager) beginSend() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.closing {
		return model.ErrorShuttingDown
	}
	m.inflight.Add(1)
	return nil
}

func (m *Manager) publish(ctx context.Context, eventType model.EventType, id model.BotID, data interface{}) {
	event := model.NewEvent(eventType, id, data)
	event.RequestID = RequestID(ctx)
	m.broadcaster.Publish(event)
}

func asUnavailable(op string, err error) error {
	if errors.Is(err, model.ErrorRemoteUnavailable) {
		return err
	}
	return &model.RemoteUnavailableError{Op: op, Err: err}
}

func webhookURL(base string, id model.BotID) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing webhook url: %w", err)
	}
	q := u.Query()
	q.Set("botId", string(id))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
