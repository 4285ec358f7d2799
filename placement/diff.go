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

package placement

import (
	"fmt"
	"sort"
)

// Delta is one switch whose placement changed between two slots. A switch
// absent from one side is treated as unassigned on that side.
type Delta struct {
	Switch        SwitchID     `json:"switch"`
	OldDomain     DomainID     `json:"old_domain"`
	NewDomain     DomainID     `json:"new_domain"`
	OldController ControllerID `json:"old_controller"`
	NewController ControllerID `json:"new_controller"`
}

func (r Delta) String() string {
	return fmt.Sprintf("switch %v: domain %v->%v, controller %v->%v",
		r.Switch, r.OldDomain, r.NewDomain, r.OldController, r.NewController)
}

// Plan is the ordered remapping plan between two assignments. Deltas are
// sorted by ascending switch ID so that two diffs of the same assignments
// are byte-for-byte identical in logs and tests.
type Plan struct {
	FromSlot uint64
	ToSlot   uint64
	Deltas   []Delta
}

// Empty reports whether the plan changes nothing.
func (r Plan) Empty() bool {
	return len(r.Deltas) == 0
}

// Diff computes the remapping plan from old to new. It walks the union of
// the switch IDs present on either side and emits one delta for every switch
// whose (domain, controller) pair differs, using the unassigned sentinel for
// a missing entry. It is a pure function: Diff(a, a) is always empty.
func Diff(old, new Assignment) Plan {
	union := make(map[SwitchID]struct{}, len(old.bindings)+len(new.bindings))
	for id := range old.bindings {
		union[id] = struct{}{}
	}
	for id := range new.bindings {
		union[id] = struct{}{}
	}

	var deltas []Delta
	for id := range union {
		from := old.Get(id)
		to := new.Get(id)
		if from == to {
			continue
		}
		deltas = append(deltas, Delta{
			Switch:        id,
			OldDomain:     from.Domain,
			NewDomain:     to.Domain,
			OldController: from.Controller,
			NewController: to.Controller,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Switch < deltas[j].Switch })

	return Plan{FromSlot: old.slot, ToSlot: new.slot, Deltas: deltas}
}
