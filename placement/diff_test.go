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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiff(t *testing.T) {
	src := []struct {
		Name     string
		Old      Assignment
		New      Assignment
		Expected []Delta
	}{
		{
			Name:     "both empty",
			Old:      Assignment{},
			New:      Assignment{},
			Expected: nil,
		},
		{
			Name: "identical",
			Old: New(1, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
				2: {Domain: 2, Controller: 2},
			}),
			New: New(2, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
				2: {Domain: 2, Controller: 2},
			}),
			Expected: nil,
		},
		{
			Name: "first slot from nothing",
			Old:  Assignment{},
			New: New(1, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
				3: {},
			}),
			// Switch 3 is unassigned on both sides: no delta for it.
			Expected: []Delta{
				{Switch: 1, OldDomain: 0, NewDomain: 1, OldController: 0, NewController: 1},
			},
		},
		{
			Name: "domain move, controller move and disappearance",
			Old: New(1, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
				2: {Domain: 1, Controller: 1},
				3: {Domain: 2, Controller: 3},
				4: {Domain: 2, Controller: 3},
			}),
			New: New(2, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 2}, // controller changed
				2: {Domain: 1, Controller: 1}, // untouched
				3: {Domain: 1, Controller: 1}, // domain changed
				// 4 disappeared: treated as moved to domain 0
			}),
			Expected: []Delta{
				{Switch: 1, OldDomain: 1, NewDomain: 1, OldController: 1, NewController: 2},
				{Switch: 3, OldDomain: 2, NewDomain: 1, OldController: 3, NewController: 1},
				{Switch: 4, OldDomain: 2, NewDomain: 0, OldController: 3, NewController: 0},
			},
		},
		{
			Name: "appearance",
			Old: New(1, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
			}),
			New: New(2, map[SwitchID]Binding{
				1: {Domain: 1, Controller: 1},
				9: {Domain: 4, Controller: 9},
			}),
			Expected: []Delta{
				{Switch: 9, OldDomain: 0, NewDomain: 4, OldController: 0, NewController: 9},
			},
		},
	}

	for _, v := range src {
		plan := Diff(v.Old, v.New)
		if plan.FromSlot != v.Old.Slot() || plan.ToSlot != v.New.Slot() {
			t.Fatalf("%v: unexpected plan slots: from=%v, to=%v", v.Name, plan.FromSlot, plan.ToSlot)
		}
		if diff := cmp.Diff(v.Expected, plan.Deltas); diff != "" {
			t.Fatalf("%v: unexpected deltas (-expected +actual):\n%v", v.Name, diff)
		}
	}
}

func TestDiffSelf(t *testing.T) {
	a := New(3, map[SwitchID]Binding{
		1: {Domain: 1, Controller: 1},
		2: {Domain: 2, Controller: 5},
		3: {},
	})

	if plan := Diff(a, a); !plan.Empty() {
		t.Fatalf("diff of an assignment against itself is not empty: %v", plan.Deltas)
	}
}

func TestDiffDeterministicOrder(t *testing.T) {
	old := New(1, map[SwitchID]Binding{
		8: {Domain: 1, Controller: 1},
		1: {Domain: 1, Controller: 1},
		5: {Domain: 1, Controller: 1},
	})

	// Run the diff repeatedly; map iteration order must never leak into the
	// plan.
	for i := 0; i < 50; i++ {
		plan := Diff(old, Assignment{})
		expected := []SwitchID{1, 5, 8}
		for j, d := range plan.Deltas {
			if d.Switch != expected[j] {
				t.Fatalf("unexpected delta order: expected=%v, actual=%v", expected[j], d.Switch)
			}
		}
	}
}
