package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"uk.co.dudmesh.viberrelay/internal/model"
)

// entry is the per-bot state. Every probe or send takes a sequence number
// when it starts; results are applied only if nothing newer was applied yet.
type entry struct {
	id       model.BotID
	token    string
	sendSlot chan struct{}
	seq      atomic.Uint64

	mu          sync.Mutex
	applied     uint64
	name        string
	status      model.BotStatus
	checkedAt   time.Time
	cause       error
	account     *model.AccountInfo
	lastEventAt time.Time
	eventCounts map[string]int
}

func newEntry(creds model.BotCredentials) *entry {
	return &entry{
		id:          creds.ID,
		token:       creds.Token,
		name:        creds.Name,
		sendSlot:    make(chan struct{}, 1),
		status:      model.BotStatusInitializing,
		eventCounts: map[string]int{},
	}
}

func (e *entry) next() uint64 {
	return e.seq.Add(1)
}

// apply runs update under the state lock unless a result newer than seq has
// already been applied. It returns the resulting snapshot, the status held
// before update and whether update ran.
func (e *entry) apply(seq uint64, update func()) (model.BotState, model.BotStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.status
	if seq < e.applied {
		return e.snapshotLocked(), previous, false
	}
	e.applied = seq
	update()
	return e.snapshotLocked(), previous, true
}

func (e *entry) snapshot() model.BotState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *entry) snapshotLocked() model.BotState {
	state := model.BotState{
		ID:     e.id,
		Name:   e.name,
		Status: e.status,
		Cause:  e.cause,
	}
	if !e.checkedAt.IsZero() {
		checkedAt := e.checkedAt
		state.CheckedAt = &checkedAt
	}
	if e.cause != nil {
		state.LastError = e.cause.Error()
	}
	if e.account != nil {
		account := *e.account
		state.Account = &account
	}
	if !e.lastEventAt.IsZero() {
		lastEventAt := e.lastEventAt
		state.LastEventAt = &lastEventAt
	}
	if len(e.eventCounts) > 0 {
		state.EventCounts = make(map[string]int, len(e.eventCounts))
		for k, v := range e.eventCounts {
			state.EventCounts[k] = v
		}
	}
	return state
}

func (e *entry) observe(event *model.InboundEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastEventAt = event.Timestamp
	e.eventCounts[string(event.Event)]++
}

// acquireSend takes the bot's single send slot, giving up when ctx ends.
func (e *entry) acquireSend(ctx context.Context) error {
	select {
	case e.sendSlot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) releaseSend() {
	<-e.sendSlot
}
