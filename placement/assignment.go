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

// Package placement holds the per-slot switch-to-domain assignments produced
// by the external placement algorithm and computes the remapping plan between
// two successive slots.
package placement

import (
	"sort"
)

// SwitchID is the datapath identifier a switch reports at connection time.
// It is opaque to this package and may be reused after the switch disconnects.
type SwitchID uint64

// DomainID identifies a forwarding domain. Domain 0 is reserved and means
// that a switch is unassigned for the slot.
type DomainID int

// ControllerID identifies the node that is authoritative for a domain's
// inter-domain escalation. It shares the SwitchID number space: a controller
// that equals a member's SwitchID is served in-band, any other value is an
// external controller endpoint. Zero means no controller.
type ControllerID uint64

// Unassigned is the binding of every switch that has no entry in the active
// assignment.
var Unassigned = Binding{Domain: 0, Controller: 0}

// Binding is one switch's placement for one time slot.
type Binding struct {
	Domain     DomainID
	Controller ControllerID
}

// Assignment is an immutable switch-to-binding mapping tagged with the time
// slot it belongs to. The zero Assignment is valid and empty: it carries slot
// number 0 and binds nothing, which is the state before the first slot is
// loaded.
type Assignment struct {
	slot     uint64
	bindings map[SwitchID]Binding
}

// New returns an Assignment for the given slot. The bindings map is copied,
// so the caller may keep modifying its own map afterwards.
func New(slot uint64, bindings map[SwitchID]Binding) Assignment {
	v := make(map[SwitchID]Binding, len(bindings))
	for id, b := range bindings {
		v[id] = b
	}

	return Assignment{slot: slot, bindings: v}
}

// Slot returns the time slot this assignment belongs to. Zero means the
// empty pre-load assignment.
func (r Assignment) Slot() uint64 {
	return r.slot
}

// Len returns the number of bound switches.
func (r Assignment) Len() int {
	return len(r.bindings)
}

// Binding returns the binding of id and whether id is present at all.
func (r Assignment) Binding(id SwitchID) (Binding, bool) {
	b, ok := r.bindings[id]
	return b, ok
}

// Get returns the binding of id, or Unassigned if id has no entry.
func (r Assignment) Get(id SwitchID) Binding {
	b, ok := r.bindings[id]
	if !ok {
		return Unassigned
	}

	return b
}

// Switches returns all bound switch IDs in ascending order.
func (r Assignment) Switches() []SwitchID {
	ids := make([]SwitchID, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Members returns the switches bound to domain in ascending order. It always
// returns a freshly derived slice, never a stored one.
func (r Assignment) Members(domain DomainID) []SwitchID {
	var ids []SwitchID
	for id, b := range r.bindings {
		if b.Domain == domain {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Membership returns the full inverse index from domain to its member
// switches, ascending in both dimensions. Unassigned switches appear under
// domain 0.
func (r Assignment) Membership() map[DomainID][]SwitchID {
	v := make(map[DomainID][]SwitchID)
	for id, b := range r.bindings {
		v[b.Domain] = append(v[b.Domain], id)
	}
	for _, ids := range v {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	return v
}

// validate reports the first malformed binding, if any. A binding is
// malformed when its domain is negative, when an unassigned switch names a
// controller, or when an assigned domain names none.
func (r Assignment) validate() error {
	for id, b := range r.bindings {
		if b.Domain < 0 {
			return &InvalidAssignmentError{Slot: r.slot, Switch: id, Reason: "negative domain"}
		}
		if b.Domain == 0 && b.Controller != 0 {
			return &InvalidAssignmentError{Slot: r.slot, Switch: id, Reason: "unassigned switch with a controller"}
		}
		if b.Domain > 0 && b.Controller == 0 {
			return &InvalidAssignmentError{Slot: r.slot, Switch: id, Reason: "missing controller"}
		}
	}

	return nil
}
