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
	"sync"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("placement")
)

// Store keeps the active assignment and the one it replaced. Load is the
// only writer; it swaps whole immutable Assignment values, so a reader never
// observes a half-applied slot transition. Older history is not retained.
type Store struct {
	mutex    sync.RWMutex
	current  Assignment
	previous Assignment
}

// NewStore returns an empty store. Until the first load, Current returns the
// zero assignment: every switch is unassigned.
func NewStore() *Store {
	return &Store{}
}

// Load makes a the active assignment and retains the previously active one.
// The slot number must advance: a slot not greater than the active one is
// rejected with *StaleSlotError. A malformed assignment is rejected with
// *InvalidAssignmentError. On any error the store is left untouched.
func (r *Store) Load(a Assignment) error {
	// Validate outside the lock; the assignment is immutable.
	if err := a.validate(); err != nil {
		return err
	}

	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if a.slot <= r.current.slot {
		return &StaleSlotError{Slot: a.slot, Current: r.current.slot}
	}
	r.previous = r.current
	r.current = a
	logger.Debugf("loaded a new assignment: slot=%v, switches=%v", a.slot, a.Len())

	return nil
}

// Current returns the active assignment. Before the first load it returns
// the zero assignment whose slot number is 0.
func (r *Store) Current() Assignment {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.current
}

// Previous returns the assignment that the active one replaced. ok is false
// until a second slot has been loaded.
func (r *Store) Previous() (a Assignment, ok bool) {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.previous, r.previous.slot > 0
}

// Slot returns the active slot number, or 0 before the first load.
func (r *Store) Slot() uint64 {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.current.slot
}

// DomainOf returns the domain id's switch belongs to in the active
// assignment, or 0 if it has no entry.
func (r *Store) DomainOf(id SwitchID) DomainID {
	return r.Current().Get(id).Domain
}

// ControllerOf returns the controller that is authoritative for id's switch
// in the active assignment, or 0 if it has no entry.
func (r *Store) ControllerOf(id SwitchID) ControllerID {
	return r.Current().Get(id).Controller
}
