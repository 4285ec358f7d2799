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

package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/placement"
	"github.com/sagin-sdn/comosat/protocol"
)

const (
	// maxChannelRetry is the per-operation retry budget at the channel
	// boundary. The failure after the last retry marks the session degraded
	// instead of tearing it down: partial rule staleness beats a forwarding
	// blackout.
	maxChannelRetry = 3

	learnCacheExpiration = 30 * time.Second
)

// State is the lifecycle state of a switch session.
type State int

const (
	// StateConnecting is the initial state: the transport handshake is done
	// but the domain rule set is not installed yet.
	StateConnecting State = iota
	// StateActive is the steady state.
	StateActive
	// StateDraining is entered while a remap replaces the session's rule
	// set. Old rules stay installed until their replacements are ready.
	StateDraining
	// StateClosed is terminal; all rule bookkeeping is discarded.
	StateClosed
)

func (r State) String() string {
	switch r {
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateDraining:
		return "DRAINING"
	case StateClosed:
		return "CLOSED"
	default:
		panic(fmt.Sprintf("unexpected session state: %v", int(r)))
	}
}

// Session owns one connected switch: its lifecycle state and its view of
// the rules currently installed on the switch. All operations are
// serialized through the session's own mutex, so one stalled switch never
// blocks the others.
type Session struct {
	id       placement.SwitchID
	channel  Channel
	store    *placement.Store
	compiler *flow.Compiler
	stats    *stats

	mutex     sync.Mutex
	state     State
	installed map[string]flow.Rule
	degraded  bool
	// macTable maps a learned source hardware address to the ingress port
	// it was seen on.
	macTable map[string]uint32
	learned  *learnCache
}

type sessionConfig struct {
	id       placement.SwitchID
	channel  Channel
	store    *placement.Store
	compiler *flow.Compiler
	stats    *stats
}

func checkParam(c sessionConfig) {
	if c.id == 0 {
		panic("Switch ID is zero")
	}
	if c.channel == nil {
		panic("Channel is nil")
	}
	if c.store == nil {
		panic("Store is nil")
	}
	if c.compiler == nil {
		panic("Compiler is nil")
	}
	if c.stats == nil {
		panic("Stats is nil")
	}
}

func newSession(c sessionConfig) *Session {
	checkParam(c)

	return &Session{
		id:        c.id,
		channel:   c.channel,
		store:     c.store,
		compiler:  c.compiler,
		stats:     c.stats,
		state:     StateConnecting,
		installed: make(map[string]flow.Rule),
		macTable:  make(map[string]uint32),
		learned:   newLearnCache(learnCacheExpiration),
	}
}

// ID returns the switch's datapath identifier.
func (r *Session) ID() placement.SwitchID {
	return r.id
}

// State returns the session's lifecycle state.
func (r *Session) State() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.state
}

// Degraded reports whether this session exceeded the retry budget for at
// least one rule operation since it connected. A degraded session stays
// active with best-effort rule coverage.
func (r *Session) Degraded() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.degraded
}

func (r *Session) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return fmt.Sprintf("Session ID=%v, State=%v, Degraded=%v, # of rules=%v, # of learned addresses=%v",
		r.id, r.state, r.degraded, len(r.installed), len(r.macTable))
}

// Connect drives the session from CONNECTING to ACTIVE: it compiles the
// switch's current domain rule set, installs it starting with the
// table-miss rule, and starts accepting packet-in and remap operations.
func (r *Session) Connect(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateClosed {
		return ErrClosedSession
	}
	if r.state != StateConnecting {
		return fmt.Errorf("connecting an already connected session: switch=%v, state=%v", r.id, r.state)
	}

	desired, err := r.desired()
	if err != nil {
		return err
	}
	installs, removes := r.reconcile(ctx, desired)
	r.state = StateActive
	logger.Infof("switch %v is up: domain=%v, installs=%v, removes=%v", r.id, r.store.DomainOf(r.id), installs, removes)

	return nil
}

// Remap re-reads the switch's binding from the store, recompiles the
// declarative rule set and reconciles the switch to it. The session drains
// for the duration of the reconciliation. changed is false when the switch
// already carried the desired rules; degraded is true when at least one
// operation exceeded the retry budget during this remap.
func (r *Session) Remap(ctx context.Context) (changed, degraded bool, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateClosed {
		return false, false, ErrClosedSession
	}

	r.state = StateDraining
	desired, err := r.desired()
	if err != nil {
		r.state = StateActive
		return false, false, err
	}

	wasDegraded := r.degraded
	r.degraded = false
	installs, removes := r.reconcile(ctx, desired)
	// A remap supersedes every reactive rule, so pending suppression
	// entries are meaningless afterwards.
	r.learned.RemoveAll()
	degraded = r.degraded
	r.degraded = r.degraded || wasDegraded
	r.state = StateActive

	if installs+removes > 0 {
		logger.Infof("remapped switch %v: domain=%v, installs=%v, removes=%v, degraded=%v",
			r.id, r.store.DomainOf(r.id), installs, removes, degraded)
	}

	return installs+removes > 0, degraded, nil
}

// ApplyRuleSet reconciles the switch to the given declarative rule set:
// rules missing from the switch are installed, rules the set no longer
// wants are removed, and a rule whose action changed is reinstalled in
// place. Applying an identical set twice performs zero operations.
func (r *Session) ApplyRuleSet(ctx context.Context, desired *flow.RuleSet) (installs, removes int, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateClosed {
		return 0, 0, ErrClosedSession
	}
	if desired == nil {
		panic("RuleSet is nil")
	}
	installs, removes = r.reconcile(ctx, desired)

	return installs, removes, nil
}

// desired compiles the declarative rule set for the switch's binding in
// the active assignment. It always reads the store's current snapshot, so
// a stale in-flight remap self-corrects instead of applying a captured
// assignment. A caller should lock the mutex.
func (r *Session) desired() (*flow.RuleSet, error) {
	a := r.store.Current()
	b := a.Get(r.id)

	return r.compiler.Compile(r.id, b.Domain, a.Members(b.Domain), b.Controller)
}

// reconcile sends the minimal install and remove operations turning the
// installed rules into the desired ones. All installs go out before any
// removal so that the switch never loses coverage for traffic an old rule
// still matches before its replacement exists. Installs run in ascending
// priority order: the table-miss fallback lands before the rules it
// backstops. A caller should lock the mutex.
func (r *Session) reconcile(ctx context.Context, desired *flow.RuleSet) (installs, removes int) {
	rules := desired.Rules()
	for i := len(rules) - 1; i >= 0; i-- {
		rule := rules[i]
		prev, ok := r.installed[rule.Key()]
		if ok && prev.Action == rule.Action && prev.Priority == rule.Priority {
			continue
		}
		if r.install(ctx, rule) {
			installs++
		}
	}

	for key := range r.installed {
		if _, ok := desired.Get(key); ok {
			continue
		}
		if r.remove(ctx, key) {
			removes++
		}
	}

	return installs, removes
}

// install sends one rule to the switch with bounded retries. On success
// the rule is recorded as installed; on exhausted retries the session is
// marked degraded and the bookkeeping keeps its previous view.
func (r *Session) install(ctx context.Context, rule flow.Rule) bool {
	for attempt := 0; ; attempt++ {
		err := r.channel.InstallRule(ctx, r.id, rule)
		if err == nil {
			r.installed[rule.Key()] = rule
			r.stats.rulesInstalled.Add(1)
			return true
		}
		if attempt >= maxChannelRetry {
			r.degraded = true
			logger.Errorf("exceeded the retry budget installing a rule: switch=%v, rule=%v: %v", r.id, rule, err)
			return false
		}
		logger.Warningf("retrying a rule install: switch=%v, rule=%v, attempt=%v: %v", r.id, rule, attempt+1, err)
	}
}

// remove deletes one rule from the switch with bounded retries. On
// exhausted retries the rule stays recorded as installed so that a later
// reconciliation retries the removal.
func (r *Session) remove(ctx context.Context, key string) bool {
	for attempt := 0; ; attempt++ {
		err := r.channel.RemoveRule(ctx, r.id, key)
		if err == nil {
			delete(r.installed, key)
			return true
		}
		if attempt >= maxChannelRetry {
			r.degraded = true
			logger.Errorf("exceeded the retry budget removing a rule: switch=%v, key=%v: %v", r.id, key, err)
			return false
		}
		logger.Warningf("retrying a rule removal: switch=%v, key=%v, attempt=%v: %v", r.id, key, attempt+1, err)
	}
}

// HandlePacketIn runs the learn-once-then-match policy on a packet the
// switch escalated: the source address is learned against the ingress
// port; a packet whose destination is already learned goes out the learned
// port along with a narrow reactive rule for the reverse path, anything
// else is flooded. Reactive rules are overridable: the next declarative
// reconciliation removes them.
func (r *Session) HandlePacketIn(ctx context.Context, inPort uint32, payload []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateClosed {
		return ErrClosedSession
	}
	r.stats.packetsProcessed.Add(1)

	eth := new(protocol.Ethernet)
	if err := eth.UnmarshalBinary(payload); err != nil {
		logger.Warningf("ignoring a malformed packet-in: switch=%v, inport=%v: %v", r.id, inPort, err)
		return nil
	}
	// Topology discovery frames are not user traffic.
	if eth.Type == protocol.EtherTypeLLDP {
		return nil
	}

	r.macTable[eth.SrcMAC.String()] = inPort
	dst := eth.DstMAC.String()

	outPort, ok := r.macTable[dst]
	if !ok {
		logger.Debugf("flooding a packet toward an unlearned address: switch=%v, dst=%v", r.id, dst)
		return r.packetOut(ctx, PortFlood, payload)
	}

	// Install the reverse-path rule unless one was sent recently. The rule
	// lives at the shared domain priority and is superseded by whatever
	// the next declarative rule set decides.
	if r.state == StateActive && !r.learned.Suppressed(inPort, dst) {
		rule := flow.Learned(inPort, dst, outPort)
		if r.install(ctx, rule) {
			r.learned.Add(inPort, dst)
		}
	}

	return r.packetOut(ctx, outPort, payload)
}

func (r *Session) packetOut(ctx context.Context, outPort uint32, payload []byte) error {
	if err := r.channel.SendPacketOut(ctx, r.id, outPort, payload); err != nil {
		logger.Errorf("failed to send a packet-out: switch=%v, outport=%v: %v", r.id, outPort, err)
		return err
	}

	return nil
}

// RuleKeys returns the match keys of the rules this session believes are
// installed on the switch, for status dumps.
func (r *Session) RuleKeys() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	keys := make([]string, 0, len(r.installed))
	for key := range r.installed {
		keys = append(keys, key)
	}

	return keys
}

// Close makes the session CLOSED and discards all rule bookkeeping. The
// switch is assumed to clear its own state on disconnect; a reconnect of
// the same switch starts a fresh CONNECTING session.
func (r *Session) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateClosed {
		return
	}
	r.state = StateClosed
	r.installed = nil
	r.macTable = nil
	r.learned.RemoveAll()
	logger.Infof("closed the session of switch %v", r.id)
}
