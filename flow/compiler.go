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
	"github.com/pkg/errors"

	"github.com/sagin-sdn/comosat/placement"
)

// Adjacency answers which egress port of src leads toward dst. Rules whose
// destination has no known port fall back to flooding.
type Adjacency interface {
	PortToward(src, dst placement.SwitchID) (port uint32, ok bool)
}

// Compiler compiles a switch's domain view into the declarative rule set
// the switch should carry. Compile is a pure function of its arguments and
// the adjacency snapshot, so a compiler is safe for concurrent use.
type Compiler struct {
	adjacency Adjacency
}

// NewCompiler returns a new compiler. adjacency can be nil, in which case
// every forwarding rule falls back to flooding.
func NewCompiler(adjacency Adjacency) *Compiler {
	return &Compiler{
		adjacency: adjacency,
	}
}

// Compile returns the rule set that target should carry when it belongs to
// domain with the given co-members and controller. members is the complete
// member list of the domain, including target itself.
//
// An unassigned switch (domain 0) only carries the table-miss rule so that
// it keeps escalating traffic while it waits for a placement. The same
// holds when the member list is empty, which a well-formed assignment
// never produces.
func (r *Compiler) Compile(target placement.SwitchID, domain placement.DomainID, members []placement.SwitchID, controller placement.ControllerID) (*RuleSet, error) {
	set := NewRuleSet()
	if err := set.Add(tableMiss()); err != nil {
		return nil, err
	}
	if domain == 0 || len(members) == 0 {
		return set, nil
	}

	for _, m := range members {
		if m == target {
			continue
		}
		if err := set.Add(r.forward(target, m)); err != nil {
			return nil, errors.Wrapf(err, "compiling domain-forward rules (target=%v, domain=%v)", target, domain)
		}
	}
	if controller == 0 {
		// Malformed binding. The store rejects it on load, so only a
		// direct caller can get here.
		return set, nil
	}
	if err := set.Add(r.escalation(target, members, controller)); err != nil {
		return nil, errors.Wrapf(err, "compiling escalation rule (target=%v, domain=%v)", target, domain)
	}

	return set, nil
}

func tableMiss() Rule {
	return Rule{
		Priority: PriorityTableMiss,
		Match:    Match{Type: MatchAny},
		Action:   Action{Type: ActionController},
	}
}

// forward returns the intra-domain forwarding rule of target toward the
// co-member dst.
func (r *Compiler) forward(target, dst placement.SwitchID) Rule {
	return Rule{
		Priority: PriorityDomain,
		Match:    Match{Type: MatchDomainLocal, Switch: dst},
		Action:   r.toward(target, dst),
	}
}

// escalation returns the rule carrying domain-external traffic to the
// domain controller. An in-band controller that is not target itself is
// reached over the data plane; everything else goes out the controller
// channel.
func (r *Compiler) escalation(target placement.SwitchID, members []placement.SwitchID, controller placement.ControllerID) Rule {
	action := Action{Type: ActionController}
	if c := placement.SwitchID(controller); c != target && r.isMember(members, c) {
		action = r.toward(target, c)
	}

	return Rule{
		Priority: PriorityDomain,
		Match:    Match{Type: MatchDomainExternal},
		Action:   action,
	}
}

func (r *Compiler) toward(src, dst placement.SwitchID) Action {
	if r.adjacency == nil {
		return Action{Type: ActionFlood}
	}
	port, ok := r.adjacency.PortToward(src, dst)
	if !ok {
		return Action{Type: ActionFlood}
	}

	return Action{Type: ActionOutput, Port: port}
}

func (r *Compiler) isMember(members []placement.SwitchID, id placement.SwitchID) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}

// Learned returns the reactive rule installed when the learning path
// already knows the port toward a destination address: packets arriving on
// inPort for dstAddr are sent out outPort without another escalation.
func Learned(inPort uint32, dstAddr string, outPort uint32) Rule {
	return Rule{
		Priority: PriorityDomain,
		Match:    Match{Type: MatchReversePath, InPort: inPort, DstAddr: dstAddr},
		Action:   Action{Type: ActionOutput, Port: outPort},
		Reactive: true,
	}
}
