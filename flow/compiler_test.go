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

package flow

import (
	"testing"

	"github.com/sagin-sdn/comosat/placement"

	"github.com/google/go-cmp/cmp"
)

type fakeAdjacency struct {
	ports map[[2]placement.SwitchID]uint32
}

func (r *fakeAdjacency) PortToward(src, dst placement.SwitchID) (uint32, bool) {
	port, ok := r.ports[[2]placement.SwitchID{src, dst}]
	return port, ok
}

func TestCompile(t *testing.T) {
	adjacency := &fakeAdjacency{ports: map[[2]placement.SwitchID]uint32{
		{1, 2}: 1,
		{2, 1}: 1,
		{1, 3}: 2,
		// No entry for 2->3: the rule toward 3 falls back to flooding.
	}}

	miss := Rule{Priority: PriorityTableMiss, Match: Match{Type: MatchAny}, Action: Action{Type: ActionController}}

	src := []struct {
		Name       string
		Target     placement.SwitchID
		Domain     placement.DomainID
		Members    []placement.SwitchID
		Controller placement.ControllerID
		Expected   []Rule
	}{
		{
			Name:     "unassigned switch gets table-miss only",
			Target:   1,
			Domain:   0,
			Members:  []placement.SwitchID{1, 4, 9},
			Expected: []Rule{miss},
		},
		{
			Name:       "empty member list is defensive table-miss only",
			Target:     1,
			Domain:     3,
			Members:    nil,
			Controller: 1,
			Expected:   []Rule{miss},
		},
		{
			Name:       "single-member domain has no forward rules",
			Target:     1,
			Domain:     2,
			Members:    []placement.SwitchID{1},
			Controller: 3,
			Expected: []Rule{
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainExternal}, Action: Action{Type: ActionController}},
				miss,
			},
		},
		{
			Name:       "mesh with an in-band controller",
			Target:     2,
			Domain:     1,
			Members:    []placement.SwitchID{1, 2},
			Controller: 1,
			Expected: []Rule{
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 1}, Action: Action{Type: ActionOutput, Port: 1}},
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainExternal}, Action: Action{Type: ActionOutput, Port: 1}},
				miss,
			},
		},
		{
			Name:       "in-band controller terminates its own escalation",
			Target:     1,
			Domain:     1,
			Members:    []placement.SwitchID{1, 2},
			Controller: 1,
			Expected: []Rule{
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 2}, Action: Action{Type: ActionOutput, Port: 1}},
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainExternal}, Action: Action{Type: ActionController}},
				miss,
			},
		},
		{
			Name:       "unresolvable member falls back to flooding",
			Target:     2,
			Domain:     1,
			Members:    []placement.SwitchID{1, 2, 3},
			Controller: 1,
			Expected: []Rule{
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 1}, Action: Action{Type: ActionOutput, Port: 1}},
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 3}, Action: Action{Type: ActionFlood}},
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainExternal}, Action: Action{Type: ActionOutput, Port: 1}},
				miss,
			},
		},
		{
			Name:       "external controller escalates to the controller channel",
			Target:     1,
			Domain:     1,
			Members:    []placement.SwitchID{1, 2},
			Controller: 99,
			Expected: []Rule{
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 2}, Action: Action{Type: ActionOutput, Port: 1}},
				{Priority: PriorityDomain, Match: Match{Type: MatchDomainExternal}, Action: Action{Type: ActionController}},
				miss,
			},
		},
	}

	compiler := NewCompiler(adjacency)
	for _, v := range src {
		set, err := compiler.Compile(v.Target, v.Domain, v.Members, v.Controller)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", v.Name, err)
		}
		if diff := cmp.Diff(v.Expected, set.Rules()); diff != "" {
			t.Fatalf("%v: unexpected rule set (-expected +actual):\n%v", v.Name, diff)
		}
	}
}

func TestCompileNilAdjacency(t *testing.T) {
	compiler := NewCompiler(nil)

	set, err := compiler.Compile(1, 1, []placement.SwitchID{1, 2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rule, ok := set.Get("dom:2")
	if !ok {
		t.Fatal("missing the domain-forward rule")
	}
	if rule.Action.Type != ActionFlood {
		t.Fatalf("unexpected action without adjacency: expected=flood, actual=%v", rule.Action)
	}
	esc, ok := set.Get("esc")
	if !ok {
		t.Fatal("missing the escalation rule")
	}
	if esc.Action.Type != ActionFlood {
		t.Fatalf("unexpected escalation action without adjacency: expected=flood, actual=%v", esc.Action)
	}
}

func TestRuleSetOverlapRejected(t *testing.T) {
	set := NewRuleSet()
	rule := Rule{Priority: PriorityDomain, Match: Match{Type: MatchDomainLocal, Switch: 7}, Action: Action{Type: ActionFlood}}
	if err := set.Add(rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule.Action = Action{Type: ActionOutput, Port: 3}
	if err := set.Add(rule); err == nil {
		t.Fatal("expected an overlapping match error")
	}
}
