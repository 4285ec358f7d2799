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
	"strings"
	"testing"
)

const sampleScenario = `{
	"nodes": [
		{"id": 1, "name": "MEO-1", "type": "meo"},
		{"id": 2, "name": "LEO-1", "type": "leo"},
		{"id": 3, "name": "GS-1", "type": "ground"}
	],
	"links": [
		{"src": 1, "src_port": 1, "dst": 2, "dst_port": 1},
		{"src": 2, "src_port": 2, "dst": 3, "dst_port": 1}
	],
	"time_slots": [
		{
			"slot": 1,
			"assignments": [
				{"node": 1, "domain": 1, "controller": 1},
				{"node": 2, "domain": 1, "controller": 1},
				{"node": 3, "domain": 0, "controller": 0}
			]
		},
		{
			"slot": 2,
			"assignments": [
				{"node": 1, "domain": 2, "controller": 3},
				{"node": 2, "domain": 1, "controller": 1},
				{"node": 3, "domain": 1, "controller": 1}
			]
		}
	]
}`

func TestReadScenario(t *testing.T) {
	s, err := ReadScenario(strings.NewReader(sampleScenario))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := s.Slots(); n != 2 {
		t.Fatalf("unexpected slot count: expected=2, actual=%v", n)
	}
	if n := len(s.Nodes()); n != 3 {
		t.Fatalf("unexpected node count: expected=3, actual=%v", n)
	}
	if n := len(s.Links()); n != 2 {
		t.Fatalf("unexpected link count: expected=2, actual=%v", n)
	}

	a, ok := s.Assignment(1)
	if !ok {
		t.Fatal("slot 1 not found")
	}
	if a.Slot() != 1 {
		t.Fatalf("unexpected slot tag: expected=1, actual=%v", a.Slot())
	}
	if b := a.Get(2); b.Domain != 1 || b.Controller != 1 {
		t.Fatalf("unexpected binding: %v", b)
	}
	if b := a.Get(3); b != Unassigned {
		t.Fatalf("unexpected binding for an unassigned node: %v", b)
	}

	if _, ok := s.Assignment(0); ok {
		t.Fatal("slot 0 must not exist")
	}
	if _, ok := s.Assignment(3); ok {
		t.Fatal("slot 3 must not exist")
	}
}

func TestReadScenarioInvalid(t *testing.T) {
	src := []struct {
		Name     string
		Document string
	}{
		{
			Name:     "empty nodes",
			Document: `{"nodes": [], "time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name: "duplicated node id",
			Document: `{"nodes": [{"id": 1, "type": "leo"}, {"id": 1, "type": "meo"}],
				"time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name: "invalid node type",
			Document: `{"nodes": [{"id": 1, "type": "balloon"}],
				"time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name: "link to an unknown node",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"links": [{"src": 1, "src_port": 1, "dst": 9, "dst_port": 1}],
				"time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name: "self link",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"links": [{"src": 1, "src_port": 1, "dst": 1, "dst_port": 2}],
				"time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name: "zero port",
			Document: `{"nodes": [{"id": 1, "type": "leo"}, {"id": 2, "type": "leo"}],
				"links": [{"src": 1, "src_port": 0, "dst": 2, "dst_port": 1}],
				"time_slots": [{"slot": 1, "assignments": []}]}`,
		},
		{
			Name:     "no slots",
			Document: `{"nodes": [{"id": 1, "type": "leo"}], "time_slots": []}`,
		},
		{
			Name: "slot numbering gap",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 1, "assignments": []}, {"slot": 3, "assignments": []}]}`,
		},
		{
			Name: "slot starting at zero",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 0, "assignments": []}]}`,
		},
		{
			Name: "assignment of an unknown node",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 1, "assignments": [{"node": 5, "domain": 1, "controller": 5}]}]}`,
		},
		{
			Name: "node bound twice",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 1, "assignments": [
					{"node": 1, "domain": 1, "controller": 1},
					{"node": 1, "domain": 2, "controller": 1}
				]}]}`,
		},
		{
			Name: "negative domain",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 1, "assignments": [{"node": 1, "domain": -2, "controller": 1}]}]}`,
		},
		{
			Name: "assigned domain without a controller",
			Document: `{"nodes": [{"id": 1, "type": "leo"}],
				"time_slots": [{"slot": 1, "assignments": [{"node": 1, "domain": 1, "controller": 0}]}]}`,
		},
	}

	for _, v := range src {
		if _, err := ReadScenario(strings.NewReader(v.Document)); err == nil {
			t.Fatalf("%v: expected error, but no error returns", v.Name)
		}
	}
}
