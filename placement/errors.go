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
)

// StaleSlotError is returned when a load does not advance the slot number.
// The store keeps its prior state untouched.
type StaleSlotError struct {
	Slot    uint64 // the rejected slot
	Current uint64 // the slot that stays active
}

func (r *StaleSlotError) Error() string {
	return fmt.Sprintf("stale slot: slot=%v, current=%v", r.Slot, r.Current)
}

// InvalidAssignmentError is returned when an assignment carries a malformed
// binding. The whole load is rejected; no partial state is applied.
type InvalidAssignmentError struct {
	Slot   uint64
	Switch SwitchID
	Reason string
}

func (r *InvalidAssignmentError) Error() string {
	return fmt.Sprintf("invalid assignment: slot=%v, switch=%v: %v", r.Slot, r.Switch, r.Reason)
}
