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

	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/placement"
)

// PortFlood is the pseudo output port that floods a packet out of every
// port except the ingress one.
const PortFlood uint32 = 0xFFFFFFFB

// Channel is the southbound boundary toward the switches. It hides the
// wire-level OpenFlow transport; implementations fail with *ChannelError on
// transport loss. Calls may block on I/O, so the caller must not hold a
// shared lock across more than the single call.
type Channel interface {
	InstallRule(ctx context.Context, id placement.SwitchID, rule flow.Rule) error
	RemoveRule(ctx context.Context, id placement.SwitchID, matchKey string) error
	SendPacketOut(ctx context.Context, id placement.SwitchID, outPort uint32, payload []byte) error
}
