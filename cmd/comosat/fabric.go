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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/network"
	"github.com/sagin-sdn/comosat/placement"
)

// fabric emulates the southbound: every scenario node gets an in-memory
// rule table instead of a real switch connection. It lets the daemon run a
// whole scenario without any hardware, while the REST API reflects the
// same state transitions a live deployment would see.
type fabric struct {
	mutex      sync.Mutex
	rules      map[placement.SwitchID]map[string]flow.Rule
	packetOuts map[placement.SwitchID]uint64
	// failureRate injects random channel errors for soak testing the
	// degraded-session path. Zero disables the injection.
	failureRate float64
	random      *rand.Rand
}

func newFabric(failureRate float64) *fabric {
	if failureRate < 0 || failureRate >= 1 {
		panic(fmt.Sprintf("invalid failure rate: %v", failureRate))
	}

	return &fabric{
		rules:       make(map[placement.SwitchID]map[string]flow.Rule),
		packetOuts:  make(map[placement.SwitchID]uint64),
		failureRate: failureRate,
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// fail rolls the failure injection dice. A caller should lock the mutex.
func (r *fabric) fail() bool {
	if r.failureRate == 0 {
		return false
	}

	return r.random.Float64() < r.failureRate
}

func (r *fabric) InstallRule(ctx context.Context, id placement.SwitchID, rule flow.Rule) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.fail() {
		return &network.ChannelError{Switch: id, Op: "install", Err: errors.New("injected fault")}
	}

	table, ok := r.rules[id]
	if !ok {
		table = make(map[string]flow.Rule)
		r.rules[id] = table
	}
	table[rule.Key()] = rule

	return nil
}

func (r *fabric) RemoveRule(ctx context.Context, id placement.SwitchID, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.fail() {
		return &network.ChannelError{Switch: id, Op: "remove", Err: errors.New("injected fault")}
	}
	delete(r.rules[id], key)

	return nil
}

func (r *fabric) SendPacketOut(ctx context.Context, id placement.SwitchID, outPort uint32, payload []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.packetOuts[id]++

	return nil
}

func (r *fabric) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make([]placement.SwitchID, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var buf bytes.Buffer
	for _, id := range ids {
		keys := make([]string, 0, len(r.rules[id]))
		for key := range r.rules[id] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteString(fmt.Sprintf("Switch %v: rules=%v, packet-outs=%v\n", id, keys, r.packetOuts[id]))
	}

	return buf.String()
}
