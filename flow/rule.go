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

// Package flow models the abstract flow rules a switch carries for its
// domain and compiles a domain's member set into the rule set one switch
// should have installed.
package flow

import (
	"fmt"

	"github.com/sagin-sdn/comosat/placement"
)

const (
	// PriorityTableMiss is the priority of the match-all fallback rule.
	PriorityTableMiss = 0
	// PriorityDomain is the priority shared by domain-forward, escalation
	// and reactive learning rules. Their matches never overlap, so no
	// finer ordering is needed.
	PriorityDomain = 1
)

// MatchType tells what kind of traffic a rule matches.
type MatchType int

const (
	// MatchAny matches everything that no other rule matched (table miss).
	MatchAny MatchType = iota
	// MatchDomainLocal matches traffic destined to one domain member.
	MatchDomainLocal
	// MatchDomainExternal matches traffic leaving the domain.
	MatchDomainExternal
	// MatchReversePath matches a learned (ingress port, destination
	// address) pair.
	MatchReversePath
)

// Match describes the traffic a rule matches. Two rules on one switch may
// never carry the same match: the match key uniquely identifies a rule
// within a switch. Match is a comparable value so that rule sets can be
// diffed directly.
type Match struct {
	Type MatchType
	// Switch is the destination domain member (MatchDomainLocal only).
	Switch placement.SwitchID
	// InPort and DstAddr identify a learned reverse path
	// (MatchReversePath only). DstAddr is the canonical string form of
	// the destination hardware address.
	InPort  uint32
	DstAddr string
}

// Key returns the match key that uniquely identifies a rule on a switch.
func (r Match) Key() string {
	switch r.Type {
	case MatchAny:
		return "miss"
	case MatchDomainLocal:
		return fmt.Sprintf("dom:%v", r.Switch)
	case MatchDomainExternal:
		return "esc"
	case MatchReversePath:
		return fmt.Sprintf("lrn:%v:%v", r.InPort, r.DstAddr)
	default:
		panic(fmt.Sprintf("unexpected match type: %v", int(r.Type)))
	}
}

// ActionType tells what a rule does with matched traffic.
type ActionType int

const (
	// ActionController escalates matched traffic to the controller
	// channel without buffering.
	ActionController ActionType = iota
	// ActionOutput forwards matched traffic out one port.
	ActionOutput
	// ActionFlood forwards matched traffic out all ports except the
	// ingress one. It is the documented fallback when no port toward the
	// destination is known.
	ActionFlood
)

// Action is the forwarding decision of a rule.
type Action struct {
	Type ActionType
	Port uint32 // valid for ActionOutput only
}

func (r Action) String() string {
	switch r.Type {
	case ActionController:
		return "controller"
	case ActionOutput:
		return fmt.Sprintf("output:%v", r.Port)
	case ActionFlood:
		return "flood"
	default:
		panic(fmt.Sprintf("unexpected action type: %v", int(r.Type)))
	}
}

// Rule is one abstract flow rule. Reactive rules are installed by the
// packet-in learning path and are always superseded by the next declarative
// rule set; they never survive a remap.
type Rule struct {
	Priority int
	Match    Match
	Action   Action
	Reactive bool
}

// Key returns the rule's match key.
func (r Rule) Key() string {
	return r.Match.Key()
}

func (r Rule) String() string {
	return fmt.Sprintf("%v -> %v (priority=%v, reactive=%v)", r.Key(), r.Action, r.Priority, r.Reactive)
}
