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

package api

import (
	"strconv"

	"github.com/sagin-sdn/comosat/placement"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/davecgh/go-spew/spew"
	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("api")
)

const maxSlotReports = 20

func (r *Server) stats(w rest.ResponseWriter, req *rest.Request) {
	w.WriteJson(Response{Status: StatusOkay, Data: r.Controller.Statistics()})
}

func (r *Server) membership(w rest.ResponseWriter, req *rest.Request) {
	w.WriteJson(Response{Status: StatusOkay, Data: r.Controller.DomainMembership()})
}

func (r *Server) slot(w rest.ResponseWriter, req *rest.Request) {
	w.WriteJson(Response{
		Status: StatusOkay,
		Data: struct {
			Slot uint64 `json:"slot"`
		}{
			Slot: r.Controller.CurrentSlot(),
		},
	})
}

func (r *Server) switches(w rest.ResponseWriter, req *rest.Request) {
	w.WriteJson(Response{Status: StatusOkay, Data: r.Controller.Switches()})
}

func (r *Server) advance(w rest.ResponseWriter, req *rest.Request) {
	report, err := r.Controller.AdvanceSlot(req.Request.Context())
	if err != nil {
		logger.Errorf("failed to advance the slot: %v", err)
		w.WriteJson(Response{Status: advanceErrorStatus(err), Message: err.Error()})
		return
	}
	logger.Debugf("slot advance request from %v: %v", req.RemoteAddr, spew.Sdump(report))

	w.WriteJson(Response{Status: StatusOkay, Data: report})
}

// advanceErrorStatus separates rejections the caller provoked from real
// server-side failures.
func advanceErrorStatus(err error) Status {
	switch err.(type) {
	case *placement.StaleSlotError, *placement.InvalidAssignmentError:
		return StatusInvalidParameter
	default:
		return StatusInternalServerError
	}
}

func (r *Server) history(w rest.ResponseWriter, req *rest.Request) {
	if r.Recorder == nil {
		w.WriteJson(Response{Status: StatusServiceUnavailable, Message: "remapping history is disabled"})
		return
	}

	v := req.URL.Query().Get("slot")
	slot, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		w.WriteJson(Response{Status: StatusInvalidParameter, Message: "invalid slot number: " + v})
		return
	}
	logger.Debugf("history request from %v: slot=%v", req.RemoteAddr, slot)

	rows, err := r.Recorder.Remappings(slot)
	if err != nil {
		logger.Errorf("failed to query the remapping history: %v", err)
		w.WriteJson(Response{Status: StatusInternalServerError, Message: err.Error()})
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: rows})
}

func (r *Server) reports(w rest.ResponseWriter, req *rest.Request) {
	if r.Recorder == nil {
		w.WriteJson(Response{Status: StatusServiceUnavailable, Message: "remapping history is disabled"})
		return
	}

	rows, err := r.Recorder.SlotReports(maxSlotReports)
	if err != nil {
		logger.Errorf("failed to query the slot reports: %v", err)
		w.WriteJson(Response{Status: StatusInternalServerError, Message: err.Error()})
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: rows})
}
