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

// Package database persists slot transition history and backs the master
// election. The control-plane core never touches it; the daemon's slot
// driver records into it and the REST API reads from it.
package database

import (
	"time"
)

// Remapping is one persisted delta outcome of a slot transition.
type Remapping struct {
	ID            uint64    `json:"id"`
	Slot          uint64    `json:"slot"`
	Switch        uint64    `json:"switch"`
	OldDomain     int       `json:"old_domain"`
	NewDomain     int       `json:"new_domain"`
	OldController uint64    `json:"old_controller"`
	NewController uint64    `json:"new_controller"`
	Applied       bool      `json:"applied"`
	Timestamp     time.Time `json:"timestamp"`
}

// SlotReport is the persisted summary of one slot transition.
type SlotReport struct {
	ID        uint64    `json:"id"`
	Slot      uint64    `json:"slot"`
	Applied   int       `json:"applied"`
	Deferred  int       `json:"deferred"`
	Degraded  int       `json:"degraded"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder persists slot transition outcomes and serves them back for the
// history API.
type Recorder interface {
	AddSlotReport(report SlotReport) error
	AddRemappings(rows []Remapping) error
	// SlotReports returns the most recent reports, newest first.
	SlotReports(limit uint8) ([]SlotReport, error)
	// Remappings returns the delta rows of one slot.
	Remappings(slot uint64) ([]Remapping, error)
}
