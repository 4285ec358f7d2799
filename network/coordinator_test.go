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
	"testing"

	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/placement"
	"github.com/sagin-sdn/comosat/topology"
)

// testFabric is the three-switch triangle used across the coordinator
// tests:
//
//	1 --(1/1)-- 2
//	1 --(2/2)-- 3
//	2 --(2/1)-- 3
func testFabric() *topology.Topology {
	topo := topology.New()
	topo.AddLink(1, 1, 2, 1)
	topo.AddLink(1, 2, 3, 2)
	topo.AddLink(2, 2, 3, 1)

	return topo
}

func testCoordinator(channel *fakeChannel) *Coordinator {
	return NewCoordinator(Config{
		Store:    placement.NewStore(),
		Compiler: flow.NewCompiler(testFabric()),
		Channel:  channel,
		Workers:  2,
	})
}

func expectTable(t *testing.T, channel *fakeChannel, id placement.SwitchID, expected map[string]flow.Action) {
	t.Helper()

	table := channel.Table(id)
	if len(table) != len(expected) {
		t.Fatalf("switch %v: unexpected number of rules: expected=%v, actual=%v (%v)", id, len(expected), len(table), table)
	}
	for key, action := range expected {
		rule, ok := table[key]
		if !ok {
			t.Fatalf("switch %v: missing rule: %v", id, key)
		}
		if rule.Action != action {
			t.Fatalf("switch %v: unexpected action of %v: expected=%v, actual=%v", id, key, action, rule.Action)
		}
	}
}

func TestSlotTransitions(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	for _, id := range []placement.SwitchID{1, 2, 3} {
		if err := coordinator.SwitchConnected(ctx, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Before the first slot every switch is unassigned: table-miss only.
	for _, id := range []placement.SwitchID{1, 2, 3} {
		expectTable(t, channel, id, map[string]flow.Action{
			"miss": {Type: flow.ActionController},
		})
	}

	// Slot 1 places switches 1 and 2 into domain 1 under the in-band
	// controller 1; switch 3 stays unassigned.
	report, err := coordinator.AdvanceSlot(ctx, placement.New(1, map[placement.SwitchID]placement.Binding{
		1: {Domain: 1, Controller: 1},
		2: {Domain: 1, Controller: 1},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Applied != 2 || report.Deferred != 0 || report.Degraded != 0 {
		t.Fatalf("unexpected report: %v", report)
	}
	expectTable(t, channel, 1, map[string]flow.Action{
		"miss":  {Type: flow.ActionController},
		"dom:2": {Type: flow.ActionOutput, Port: 1},
		"esc":   {Type: flow.ActionController},
	})
	expectTable(t, channel, 2, map[string]flow.Action{
		"miss":  {Type: flow.ActionController},
		"dom:1": {Type: flow.ActionOutput, Port: 1},
		"esc":   {Type: flow.ActionOutput, Port: 1},
	})
	expectTable(t, channel, 3, map[string]flow.Action{
		"miss": {Type: flow.ActionController},
	})

	// Slot 2 moves switch 1 into its own domain and hands its place in
	// domain 1 to switch 3. Switch 2's binding is unchanged, so the
	// transition never touches it.
	untouched := channel.OpCount(2)
	report, err = coordinator.AdvanceSlot(ctx, placement.New(2, map[placement.SwitchID]placement.Binding{
		1: {Domain: 2, Controller: 3},
		2: {Domain: 1, Controller: 1},
		3: {Domain: 1, Controller: 1},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Applied != 2 || report.Deferred != 0 || report.Degraded != 0 {
		t.Fatalf("unexpected report: %v", report)
	}
	if len(report.Results) != 2 {
		t.Fatalf("unexpected number of deltas: expected=2, actual=%v", len(report.Results))
	}
	if channel.OpCount(2) != untouched {
		t.Fatal("reconciled a switch whose binding did not change")
	}
	// Switch 1 is alone in domain 2 with the external controller 3.
	expectTable(t, channel, 1, map[string]flow.Action{
		"miss": {Type: flow.ActionController},
		"esc":  {Type: flow.ActionController},
	})
	// Switch 3 joined domain 1; its controller 1 left the domain, so
	// escalation goes out the controller channel.
	expectTable(t, channel, 3, map[string]flow.Action{
		"miss":  {Type: flow.ActionController},
		"dom:2": {Type: flow.ActionOutput, Port: 1},
		"esc":   {Type: flow.ActionController},
	})

	if slot := coordinator.CurrentSlot(); slot != 2 {
		t.Fatalf("unexpected slot: expected=2, actual=%v", slot)
	}
	if v := coordinator.Statistics(); v.Remappings != 4 {
		t.Fatalf("unexpected remapping count: expected=4, actual=%v", v.Remappings)
	}
}

func TestAdvanceSlotRejectsStaleAndInvalid(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	if err := coordinator.SwitchConnected(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := coordinator.AdvanceSlot(ctx, placement.New(2, map[placement.SwitchID]placement.Binding{
		1: {Domain: 1, Controller: 1},
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mark := channel.OpCount(1)

	// Re-submitting the active slot, going backwards and a malformed
	// assignment are all rejected with no switch touched.
	src := []struct {
		Name       string
		Assignment placement.Assignment
		Expected   error
	}{
		{
			Name:       "duplicated slot",
			Assignment: placement.New(2, nil),
			Expected:   &placement.StaleSlotError{},
		},
		{
			Name:       "backwards slot",
			Assignment: placement.New(1, nil),
			Expected:   &placement.StaleSlotError{},
		},
		{
			Name: "missing controller",
			Assignment: placement.New(3, map[placement.SwitchID]placement.Binding{
				1: {Domain: 1},
			}),
			Expected: &placement.InvalidAssignmentError{},
		},
	}
	for _, v := range src {
		report, err := coordinator.AdvanceSlot(ctx, v.Assignment)
		if err == nil {
			t.Fatalf("%v: expected an error", v.Name)
		}
		if report != nil {
			t.Fatalf("%v: unexpected report: %v", v.Name, report)
		}
		switch v.Expected.(type) {
		case *placement.StaleSlotError:
			if _, ok := err.(*placement.StaleSlotError); !ok {
				t.Fatalf("%v: unexpected error type: %v", v.Name, err)
			}
		case *placement.InvalidAssignmentError:
			if _, ok := err.(*placement.InvalidAssignmentError); !ok {
				t.Fatalf("%v: unexpected error type: %v", v.Name, err)
			}
		}
	}
	if channel.OpCount(1) != mark {
		t.Fatal("a rejected slot transition touched a switch")
	}
	if slot := coordinator.CurrentSlot(); slot != 2 {
		t.Fatalf("unexpected slot: expected=2, actual=%v", slot)
	}
}

func TestDeferredDeltaAppliesOnConnect(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	// Switch 2 is placed while disconnected: its delta is deferred.
	report, err := coordinator.AdvanceSlot(ctx, placement.New(1, map[placement.SwitchID]placement.Binding{
		1: {Domain: 1, Controller: 1},
		2: {Domain: 1, Controller: 1},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Applied != 0 || report.Deferred != 2 {
		t.Fatalf("unexpected report: %v", report)
	}

	// Connecting always reads the active assignment, so the deferred
	// binding takes effect right away.
	if err := coordinator.SwitchConnected(ctx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectTable(t, channel, 2, map[string]flow.Action{
		"miss":  {Type: flow.ActionController},
		"dom:1": {Type: flow.ActionOutput, Port: 1},
		"esc":   {Type: flow.ActionOutput, Port: 1},
	})
}

func TestDegradedDeltaAccounting(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	if err := coordinator.SwitchConnected(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every install of the domain-forward rule on switch 1 fails; the
	// escalation and table-miss rules still land, and the delta is counted
	// as degraded rather than silently applied.
	channel.Fail("install", 1, "dom:2", maxChannelRetry+1)
	report, err := coordinator.AdvanceSlot(ctx, placement.New(1, map[placement.SwitchID]placement.Binding{
		1: {Domain: 1, Controller: 1},
		2: {Domain: 1, Controller: 1},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Degraded != 1 || report.Deferred != 1 || report.Applied != 0 {
		t.Fatalf("unexpected report: %v", report)
	}
	expectTable(t, channel, 1, map[string]flow.Action{
		"miss": {Type: flow.ActionController},
		"esc":  {Type: flow.ActionController},
	})
}

func TestDuplicatedConnectReplacesSession(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	if err := coordinator.SwitchConnected(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	old, ok := coordinator.sessions.Load(1)
	if !ok {
		t.Fatal("missing the session of switch 1")
	}

	if err := coordinator.SwitchConnected(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old.State() != StateClosed {
		t.Fatalf("previous session not closed: %v", old.State())
	}
	current, ok := coordinator.sessions.Load(1)
	if !ok || current == old {
		t.Fatal("the duplicated connect did not replace the session")
	}
	if current.State() != StateActive {
		t.Fatalf("unexpected state of the replacement session: %v", current.State())
	}
}

func TestUnknownSwitchEventsIgnored(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	coordinator.SwitchDisconnected(42)
	if err := coordinator.PacketIn(context.Background(), 42, 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(channel.Ops()) != 0 || len(channel.PacketOuts()) != 0 {
		t.Fatal("an unknown switch caused channel traffic")
	}
	if v := coordinator.Switches(); len(v) != 0 {
		t.Fatalf("unexpected switches: %v", v)
	}
}

func TestSwitchDisconnectClosesSession(t *testing.T) {
	channel := newFakeChannel()
	coordinator := testCoordinator(channel)
	defer coordinator.Close()

	ctx := context.Background()
	for _, id := range []placement.SwitchID{1, 2} {
		if err := coordinator.SwitchConnected(ctx, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	session, _ := coordinator.sessions.Load(1)

	coordinator.SwitchDisconnected(1)
	if session.State() != StateClosed {
		t.Fatalf("unexpected state: %v", session.State())
	}
	v := coordinator.Switches()
	if len(v) != 1 || v[0] != 2 {
		t.Fatalf("unexpected switches: %v", v)
	}
}
