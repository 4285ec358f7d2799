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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// NodeType classifies a SAGIN node.
type NodeType string

const (
	NodeMEO    NodeType = "meo"
	NodeLEO    NodeType = "leo"
	NodeHAPS   NodeType = "haps"
	NodeGround NodeType = "ground"
)

func (r NodeType) valid() bool {
	switch r {
	case NodeMEO, NodeLEO, NodeHAPS, NodeGround:
		return true
	default:
		return false
	}
}

// Node is one switch of the scenario: a satellite, a high-altitude platform
// or a ground station.
type Node struct {
	ID   SwitchID `json:"id"`
	Name string   `json:"name"`
	Type NodeType `json:"type"`
}

// Link is a bidirectional connection between two scenario nodes, with the
// OpenFlow port number used on each side.
type Link struct {
	Src     SwitchID `json:"src"`
	SrcPort uint32   `json:"src_port"`
	Dst     SwitchID `json:"dst"`
	DstPort uint32   `json:"dst_port"`
}

// Scenario is a precomputed placement feed: the node inventory, the physical
// links and one assignment per time slot, as produced by the external
// placement algorithm.
type Scenario struct {
	nodes []Node
	links []Link
	slots []Assignment
}

type rawScenario struct {
	Nodes []Node    `json:"nodes"`
	Links []Link    `json:"links"`
	Slots []rawSlot `json:"time_slots"`
}

type rawSlot struct {
	Slot        uint64       `json:"slot"`
	Assignments []rawBinding `json:"assignments"`
}

type rawBinding struct {
	Node       SwitchID     `json:"node"`
	Domain     DomainID     `json:"domain"`
	Controller ControllerID `json:"controller"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening the scenario file")
	}
	defer f.Close()

	s, err := ReadScenario(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading the scenario file %v", path)
	}

	return s, nil
}

// ReadScenario decodes and validates a scenario document. Slot numbers must
// be contiguous and ascending from 1, every referenced node must exist, and
// every per-slot binding must be well formed.
func ReadScenario(r io.Reader) (*Scenario, error) {
	raw := new(rawScenario)
	if err := json.NewDecoder(r).Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decoding the scenario document")
	}

	if len(raw.Nodes) == 0 {
		return nil, errors.New("empty node inventory")
	}
	known := make(map[SwitchID]struct{}, len(raw.Nodes))
	for _, n := range raw.Nodes {
		if n.ID == 0 {
			return nil, fmt.Errorf("invalid node id: %v", n.Name)
		}
		if !n.Type.valid() {
			return nil, fmt.Errorf("invalid node type: node=%v, type=%v", n.ID, n.Type)
		}
		if _, ok := known[n.ID]; ok {
			return nil, fmt.Errorf("duplicated node id: %v", n.ID)
		}
		known[n.ID] = struct{}{}
	}

	for _, l := range raw.Links {
		if _, ok := known[l.Src]; !ok {
			return nil, fmt.Errorf("link references an unknown node: %v", l.Src)
		}
		if _, ok := known[l.Dst]; !ok {
			return nil, fmt.Errorf("link references an unknown node: %v", l.Dst)
		}
		if l.Src == l.Dst {
			return nil, fmt.Errorf("self link on node %v", l.Src)
		}
		if l.SrcPort == 0 || l.DstPort == 0 {
			return nil, fmt.Errorf("invalid port number on the link %v-%v", l.Src, l.Dst)
		}
	}

	slots := make([]Assignment, 0, len(raw.Slots))
	for i, s := range raw.Slots {
		if s.Slot != uint64(i)+1 {
			return nil, fmt.Errorf("slot numbers must be contiguous from 1: expected=%v, actual=%v", i+1, s.Slot)
		}
		bindings := make(map[SwitchID]Binding, len(s.Assignments))
		for _, b := range s.Assignments {
			if _, ok := known[b.Node]; !ok {
				return nil, fmt.Errorf("slot %v references an unknown node: %v", s.Slot, b.Node)
			}
			if _, ok := bindings[b.Node]; ok {
				return nil, fmt.Errorf("slot %v binds node %v twice", s.Slot, b.Node)
			}
			bindings[b.Node] = Binding{Domain: b.Domain, Controller: b.Controller}
		}
		a := New(s.Slot, bindings)
		if err := a.validate(); err != nil {
			return nil, err
		}
		slots = append(slots, a)
	}
	if len(slots) == 0 {
		return nil, errors.New("scenario has no time slots")
	}

	nodes := make([]Node, len(raw.Nodes))
	copy(nodes, raw.Nodes)
	links := make([]Link, len(raw.Links))
	copy(links, raw.Links)

	return &Scenario{nodes: nodes, links: links, slots: slots}, nil
}

// Nodes returns the node inventory.
func (r *Scenario) Nodes() []Node {
	v := make([]Node, len(r.nodes))
	copy(v, r.nodes)
	return v
}

// Links returns the physical links.
func (r *Scenario) Links() []Link {
	v := make([]Link, len(r.links))
	copy(v, r.links)
	return v
}

// Slots returns the number of time slots.
func (r *Scenario) Slots() int {
	return len(r.slots)
}

// Assignment returns the assignment of the given slot. ok is false when the
// slot is out of the scenario's range.
func (r *Scenario) Assignment(slot uint64) (a Assignment, ok bool) {
	if slot < 1 || slot > uint64(len(r.slots)) {
		return Assignment{}, false
	}

	return r.slots[slot-1], true
}
