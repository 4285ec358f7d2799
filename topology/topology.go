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

// Package topology tracks the physical links among the SAGIN switches and
// answers next-hop queries for the domain rule compiler.
package topology

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sagin-sdn/comosat/placement"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("topology")
)

type link struct {
	port      uint32 // egress port on the source side
	timestamp time.Time
}

// Topology is a bi-directional link graph keyed by switch ID. SAGIN links
// churn as satellites move, so links carry a timestamp that is refreshed
// whenever the same link is reported again; stale ones can be expired.
type Topology struct {
	mutex sync.RWMutex
	// links[src][dst] is the link from src to dst as seen from src.
	links map[placement.SwitchID]map[placement.SwitchID]link
}

func New() *Topology {
	return &Topology{
		links: make(map[placement.SwitchID]map[placement.SwitchID]link),
	}
}

// FromLinks builds a topology out of a scenario's link list.
func FromLinks(links []placement.Link) *Topology {
	r := New()
	for _, l := range links {
		r.AddLink(l.Src, l.SrcPort, l.Dst, l.DstPort)
	}

	return r
}

func (r *Topology) String() string {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	srcs := make([]placement.SwitchID, 0, len(r.links))
	for src := range r.links {
		srcs = append(srcs, src)
	}
	sort.Slice(srcs, func(i, j int) bool { return srcs[i] < srcs[j] })

	var buf bytes.Buffer
	for _, src := range srcs {
		for dst, l := range r.links[src] {
			if src > dst {
				// Each link is stored in both directions; print it once.
				continue
			}
			buf.WriteString(fmt.Sprintf("Link %v/%v - %v/%v, Timestamp=%v\n", src, l.port, dst, r.links[dst][src].port, l.timestamp))
		}
	}

	return buf.String()
}

// AddLink registers the bi-directional link between src and dst, with the
// egress port number on each side. Re-adding an existing link refreshes its
// timestamp and port numbers.
func (r *Topology) AddLink(src placement.SwitchID, srcPort uint32, dst placement.SwitchID, dstPort uint32) {
	if src == dst {
		panic("adding a self link")
	}
	if srcPort == 0 || dstPort == 0 {
		panic("adding a link with port number 0")
	}

	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	r.addHalf(src, dst, srcPort, now)
	r.addHalf(dst, src, dstPort, now)
	logger.Debugf("added a link: %v/%v - %v/%v", src, srcPort, dst, dstPort)
}

// addHalf stores one direction of a link. A caller should lock the mutex.
func (r *Topology) addHalf(src, dst placement.SwitchID, port uint32, now time.Time) {
	v, ok := r.links[src]
	if !ok {
		v = make(map[placement.SwitchID]link)
		r.links[src] = v
	}
	v[dst] = link{port: port, timestamp: now}
}

// RemoveLink removes the link between src and dst in both directions. It is
// a no-op when the link is unknown.
func (r *Topology) RemoveLink(src, dst placement.SwitchID) {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.removeHalf(src, dst)
	r.removeHalf(dst, src)
}

// removeHalf removes one direction of a link. A caller should lock the mutex.
func (r *Topology) removeHalf(src, dst placement.SwitchID) {
	v, ok := r.links[src]
	if !ok {
		return
	}
	delete(v, dst)
	if len(v) == 0 {
		delete(r.links, src)
	}
}

// RemoveStaleLinks removes every link that has not been refreshed within
// expiration.
func (r *Topology) RemoveStaleLinks(expiration time.Duration) (removed bool) {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for src, peers := range r.links {
		for dst, l := range peers {
			if time.Now().Sub(l.timestamp) < expiration {
				continue
			}
			logger.Infof("removing a stale link from the topology: %v - %v", src, dst)
			r.removeHalf(src, dst)
			r.removeHalf(dst, src)
			removed = true
		}
	}

	return removed
}

// PortToward returns the egress port on src for the first hop of a shortest
// path toward dst. ok is false when dst is unreachable from src, in which
// case the caller falls back to flooding.
func (r *Topology) PortToward(src, dst placement.SwitchID) (port uint32, ok bool) {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if src == dst {
		return 0, false
	}
	if _, ok := r.links[src]; !ok {
		return 0, false
	}

	// BFS over the link graph; prev records the vertex each one was first
	// reached from.
	visited := map[placement.SwitchID]bool{src: true}
	prev := make(map[placement.SwitchID]placement.SwitchID)
	queue := []placement.SwitchID{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if v == dst {
			break
		}
		// Deterministic neighbor order keeps the chosen path stable across
		// queries when multiple shortest paths exist.
		peers := make([]placement.SwitchID, 0, len(r.links[v]))
		for next := range r.links[v] {
			peers = append(peers, next)
		}
		sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
		for _, next := range peers {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = v
			queue = append(queue, next)
		}
	}
	if !visited[dst] {
		return 0, false
	}

	// Walk back from dst to the neighbor of src on the path.
	hop := dst
	for prev[hop] != src {
		hop = prev[hop]
	}

	return r.links[src][hop].port, true
}
