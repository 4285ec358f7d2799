/*
 * COMOSAT - An SDN Control Plane for Space-Air-Ground Integrated Networks
 *
 * Copyright (C) 2025-2026 SAGIN SDN Project. All rights reserved.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package network is the domain-aware control-plane state machine: it owns
// one session per connected switch and keeps every switch's flow rules
// consistent with the time-slotted domain assignment.
package network

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/placement"

	"github.com/op/go-logging"
	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	logger = logging.MustGetLogger("network")
)

type stats struct {
	remappings       atomic.Uint64
	rulesInstalled   atomic.Uint64
	packetsProcessed atomic.Uint64
}

// Statistics is a point-in-time snapshot of the coordinator's counters.
// The counters live for the process lifetime; exporting them periodically
// is an external concern.
type Statistics struct {
	Remappings       uint64 `json:"remappings"`
	RulesInstalled   uint64 `json:"rules_installed"`
	PacketsProcessed uint64 `json:"packets_processed"`
}

// DeltaResult is the outcome of one remapping delta within a slot
// transition.
type DeltaResult struct {
	placement.Delta
	// Applied is true when a live session reconciled the delta. A delta
	// without a live session is deferred: it takes effect when the switch
	// connects, since connecting always reads the current assignment.
	Applied bool `json:"applied"`
	// Degraded is true when the session exceeded its retry budget while
	// reconciling this delta.
	Degraded bool `json:"degraded"`
}

// Report accounts for every delta of one slot transition. A delta is
// counted in exactly one of the three buckets; none is ever silently
// dropped.
type Report struct {
	Slot     uint64        `json:"slot"`
	Applied  int           `json:"applied"`
	Deferred int           `json:"deferred"`
	Degraded int           `json:"degraded"`
	Results  []DeltaResult `json:"results"`
}

func (r *Report) String() string {
	return fmt.Sprintf("slot %v: applied=%v, deferred=%v, degraded=%v", r.Slot, r.Applied, r.Deferred, r.Degraded)
}

// Config carries the collaborators of a coordinator.
type Config struct {
	Store    *placement.Store
	Compiler *flow.Compiler
	Channel  Channel
	// Workers bounds the number of switches reconciled concurrently during
	// a slot transition. Zero means the number of CPUs.
	Workers int
}

// Coordinator owns the assignment store, the live set of switch sessions
// and the control-plane statistics. It is the single entry point for both
// switch-originated events and slot transitions.
type Coordinator struct {
	store    *placement.Store
	compiler *flow.Compiler
	channel  Channel
	sessions *xsync.MapOf[placement.SwitchID, *Session]
	pool     *ants.Pool
	stats    stats
}

func NewCoordinator(c Config) *Coordinator {
	if c.Store == nil {
		panic("Store is nil")
	}
	if c.Compiler == nil {
		panic("Compiler is nil")
	}
	if c.Channel == nil {
		panic("Channel is nil")
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v interface{}) {
		logger.Errorf("panic in a reconciliation worker: %v", v)
	}))
	if err != nil {
		panic(fmt.Sprintf("failed to init the reconciliation worker pool: %v", err))
	}

	return &Coordinator{
		store:    c.Store,
		compiler: c.Compiler,
		channel:  c.Channel,
		sessions: xsync.NewMapOf[placement.SwitchID, *Session](),
		pool:     pool,
	}
}

// Close releases the worker pool. Live sessions are closed as well.
func (r *Coordinator) Close() {
	r.sessions.Range(func(id placement.SwitchID, s *Session) bool {
		s.Close()
		r.sessions.Delete(id)
		return true
	})
	r.pool.Release()
}

// SwitchConnected registers a new switch and drives its session from
// CONNECTING to ACTIVE. A duplicated connect for a live switch closes and
// replaces the previous session: the switch itself is the authority on its
// own identity, and a fresh connection means the old one is dead.
func (r *Coordinator) SwitchConnected(ctx context.Context, id placement.SwitchID) error {
	session := newSession(sessionConfig{
		id:       id,
		channel:  r.channel,
		store:    r.store,
		compiler: r.compiler,
		stats:    &r.stats,
	})

	if old, loaded := r.sessions.LoadAndStore(id, session); loaded {
		logger.Warningf("duplicated connection from switch %v: closing the previous session", id)
		old.Close()
	}

	if err := session.Connect(ctx); err != nil {
		r.sessions.Compute(id, func(current *Session, loaded bool) (*Session, bool) {
			// Deregister only if the failed session is still the live one.
			if !loaded || current == session {
				return nil, true
			}
			return current, false
		})
		return err
	}

	return nil
}

// SwitchDisconnected closes and deregisters the switch's session. An
// unknown switch is ignored.
func (r *Coordinator) SwitchDisconnected(id placement.SwitchID) {
	session, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		logger.Debugf("disconnect event for an unknown switch %v: ignored", id)
		return
	}
	session.Close()
}

// PacketIn delegates an escalated packet to the switch's session. A packet
// from an unknown switch is ignored.
func (r *Coordinator) PacketIn(ctx context.Context, id placement.SwitchID, inPort uint32, payload []byte) error {
	session, ok := r.sessions.Load(id)
	if !ok {
		logger.Debugf("packet-in from an unknown switch %v: ignored", id)
		return nil
	}

	return session.HandlePacketIn(ctx, inPort, payload)
}

// AdvanceSlot loads the next slot's assignment, diffs it against the
// previous one and reconciles every live switch whose binding changed.
// Per-switch reconciliations fan out on the bounded worker pool; the call
// returns once all of them finished. Loading errors (*StaleSlotError,
// *InvalidAssignmentError) propagate with no switch touched.
func (r *Coordinator) AdvanceSlot(ctx context.Context, a placement.Assignment) (*Report, error) {
	if err := r.store.Load(a); err != nil {
		return nil, err
	}
	previous, _ := r.store.Previous()
	plan := placement.Diff(previous, r.store.Current())

	report := &Report{Slot: a.Slot(), Results: make([]DeltaResult, len(plan.Deltas))}
	var wg sync.WaitGroup
	for i, delta := range plan.Deltas {
		report.Results[i].Delta = delta

		session, ok := r.sessions.Load(delta.Switch)
		if !ok {
			// Deferred: the binding applies when the switch connects.
			continue
		}

		wg.Add(1)
		result := &report.Results[i]
		err := r.pool.Submit(func() {
			defer wg.Done()
			r.applyDelta(ctx, session, result)
		})
		if err != nil {
			// The pool is released; the coordinator is shutting down.
			wg.Done()
			logger.Warningf("dropped a reconciliation task: switch=%v: %v", delta.Switch, err)
		}
	}
	wg.Wait()

	for _, result := range report.Results {
		switch {
		case result.Degraded:
			report.Degraded++
		case result.Applied:
			report.Applied++
		default:
			report.Deferred++
		}
	}
	logger.Infof("advanced to %v", report)

	return report, nil
}

func (r *Coordinator) applyDelta(ctx context.Context, session *Session, result *DeltaResult) {
	_, degraded, err := session.Remap(ctx)
	if err != nil {
		// The switch disconnected while the transition was in flight;
		// the delta is deferred like any other switch without a session.
		logger.Debugf("skipped a remap: switch=%v: %v", session.ID(), err)
		return
	}
	result.Applied = true
	result.Degraded = degraded
	r.stats.remappings.Add(1)
}

// Statistics returns a snapshot of the process-lifetime counters.
func (r *Coordinator) Statistics() Statistics {
	return Statistics{
		Remappings:       r.stats.remappings.Load(),
		RulesInstalled:   r.stats.rulesInstalled.Load(),
		PacketsProcessed: r.stats.packetsProcessed.Load(),
	}
}

// CurrentSlot returns the active slot number, or 0 before the first
// transition.
func (r *Coordinator) CurrentSlot() uint64 {
	return r.store.Slot()
}

// DomainMembership returns a freshly derived read-only snapshot of the
// active assignment's inverse index.
func (r *Coordinator) DomainMembership() map[placement.DomainID][]placement.SwitchID {
	return r.store.Current().Membership()
}

// Switches returns the connected switch IDs in ascending order.
func (r *Coordinator) Switches() []placement.SwitchID {
	ids := make([]placement.SwitchID, 0, r.sessions.Size())
	r.sessions.Range(func(id placement.SwitchID, s *Session) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (r *Coordinator) String() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Slot=%v, Statistics=%+v\n", r.CurrentSlot(), r.Statistics()))
	for _, id := range r.Switches() {
		session, ok := r.sessions.Load(id)
		if !ok {
			continue
		}
		buf.WriteString(fmt.Sprintf("\t%v\n", session))
	}

	return buf.String()
}
