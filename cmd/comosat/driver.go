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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sagin-sdn/comosat/database"
	"github.com/sagin-sdn/comosat/network"
	"github.com/sagin-sdn/comosat/placement"
)

// slotDriver walks the coordinator through the scenario's time slots. It is
// also the surface the REST API talks to: read-only queries go straight to
// the coordinator, slot advances go through the scenario.
type slotDriver struct {
	coordinator *network.Coordinator
	scenario    *placement.Scenario
	// recorder persists the transition history. It can be nil.
	recorder database.Recorder
}

func newSlotDriver(coordinator *network.Coordinator, scenario *placement.Scenario, recorder database.Recorder) *slotDriver {
	if coordinator == nil {
		panic("Coordinator is nil")
	}
	if scenario == nil {
		panic("Scenario is nil")
	}

	return &slotDriver{
		coordinator: coordinator,
		scenario:    scenario,
		recorder:    recorder,
	}
}

// AdvanceSlot pushes the scenario's next slot into the coordinator and
// records the outcome. It fails once the scenario is exhausted.
func (r *slotDriver) AdvanceSlot(ctx context.Context) (*network.Report, error) {
	next := r.coordinator.CurrentSlot() + 1
	a, ok := r.scenario.Assignment(next)
	if !ok {
		return nil, fmt.Errorf("scenario exhausted: %v slots", r.scenario.Slots())
	}

	report, err := r.coordinator.AdvanceSlot(ctx, a)
	if err != nil {
		return nil, err
	}
	r.record(report)

	return report, nil
}

// Exhausted reports whether the scenario has no slot left to advance to.
func (r *slotDriver) Exhausted() bool {
	_, ok := r.scenario.Assignment(r.coordinator.CurrentSlot() + 1)
	return !ok
}

// record persists a transition report. Persistence failures are logged and
// swallowed: losing one history row must never stall the slot schedule.
func (r *slotDriver) record(report *network.Report) {
	if r.recorder == nil {
		return
	}

	err := r.recorder.AddSlotReport(database.SlotReport{
		Slot:     report.Slot,
		Applied:  report.Applied,
		Deferred: report.Deferred,
		Degraded: report.Degraded,
	})
	if err != nil {
		logger.Errorf("failed to record a slot report: slot=%v: %v", report.Slot, err)
	}

	rows := make([]database.Remapping, 0, len(report.Results))
	for _, v := range report.Results {
		rows = append(rows, database.Remapping{
			Slot:          report.Slot,
			Switch:        uint64(v.Switch),
			OldDomain:     int(v.OldDomain),
			NewDomain:     int(v.NewDomain),
			OldController: uint64(v.OldController),
			NewController: uint64(v.NewController),
			Applied:       v.Applied,
		})
	}
	if err := r.recorder.AddRemappings(rows); err != nil {
		logger.Errorf("failed to record remappings: slot=%v: %v", report.Slot, err)
	}
}

func (r *slotDriver) Statistics() network.Statistics {
	return r.coordinator.Statistics()
}

func (r *slotDriver) CurrentSlot() uint64 {
	return r.coordinator.CurrentSlot()
}

func (r *slotDriver) DomainMembership() map[placement.DomainID][]placement.SwitchID {
	return r.coordinator.DomainMembership()
}

func (r *slotDriver) Switches() []placement.SwitchID {
	return r.coordinator.Switches()
}

// run advances one slot per period until the scenario is exhausted or the
// context cancels. Only the master instance drives the schedule; a standby
// keeps its sessions warm and waits.
func (r *slotDriver) run(ctx context.Context, period time.Duration, observer Observer) {
	ticker := time.Tick(period)
	// Infinite loop.
	for {
		select {
		case <-ctx.Done():
			logger.Debug("terminating the slot driver...")
			return
		case <-ticker:
			if observer.IsMaster() == false {
				logger.Debug("skipping the slot schedule: not the master instance")
				continue
			}
			if r.Exhausted() {
				logger.Infof("scenario complete: %v slots", r.scenario.Slots())
				return
			}
			report, err := r.AdvanceSlot(ctx)
			if err != nil {
				logger.Errorf("failed to advance the slot schedule: %v", err)
				continue
			}
			logger.Infof("slot schedule advanced: %v", report)
		}
	}
}

// Observer tells whether this instance is the elected master.
type Observer interface {
	IsMaster() bool
}

// alwaysMaster substitutes the election observer when the daemon runs
// standalone without a database.
type alwaysMaster struct{}

func (alwaysMaster) IsMaster() bool { return true }
