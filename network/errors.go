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
	"errors"
	"fmt"

	"github.com/sagin-sdn/comosat/placement"
)

var (
	// ErrClosedSession is returned by operations on a session whose switch
	// already disconnected.
	ErrClosedSession = errors.New("already closed session")
)

// ChannelError is a transient transport failure at the switch-channel
// boundary. Install and remove operations that fail with it are retried up
// to the session's retry budget.
type ChannelError struct {
	Switch placement.SwitchID
	Op     string // "install", "remove" or "packet-out"
	Err    error
}

func (r *ChannelError) Error() string {
	return fmt.Sprintf("channel failure: switch=%v, op=%v: %v", r.Switch, r.Op, r.Err)
}

func (r *ChannelError) Unwrap() error {
	return r.Err
}

// UnknownSwitchError is returned by explicit rule operations referencing a
// switch that has no live session. Disconnect and packet-in events for an
// unknown switch are ignored instead.
type UnknownSwitchError struct {
	Switch placement.SwitchID
}

func (r *UnknownSwitchError) Error() string {
	return fmt.Sprintf("unknown switch: %v", r.Switch)
}
