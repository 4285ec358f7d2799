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

// Package api exposes the control plane's state and the slot driver over a
// small REST surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sagin-sdn/comosat/database"
	"github.com/sagin-sdn/comosat/network"
	"github.com/sagin-sdn/comosat/placement"

	"github.com/ant0ine/go-json-rest/rest"
)

type Server struct {
	Port uint16
	TLS  struct {
		Cert string // Path for a TLS certification file.
		Key  string // Path for a TLS private key file.
	}
	Observer   Observer
	Controller Controller
	// Recorder serves the remapping history. It can be nil, in which case
	// the history endpoints answer with a service unavailable status.
	Recorder database.Recorder
	// Auth verifies HTTP basic auth credentials. It can be nil, in which
	// case the API is open.
	Auth Authenticator
}

type Observer interface {
	IsMaster() bool
}

// Controller is the daemon-side surface the API exposes: the coordinator's
// read-only views plus the scenario slot driver.
type Controller interface {
	Statistics() network.Statistics
	CurrentSlot() uint64
	DomainMembership() map[placement.DomainID][]placement.SwitchID
	Switches() []placement.SwitchID
	// AdvanceSlot drives the next scenario slot through the coordinator.
	AdvanceSlot(ctx context.Context) (*network.Report, error)
}

type Authenticator interface {
	Auth(username, password string) (ok bool, err error)
}

func (r *Server) validate() error {
	if r.Observer == nil {
		return errors.New("nil observer")
	}
	if r.Controller == nil {
		return errors.New("nil controller")
	}

	return nil
}

func (r *Server) Serve() error {
	if err := r.validate(); err != nil {
		return err
	}

	api := rest.NewApi()
	// Middleware to deny mutating requests if we are not the master instance.
	api.Use(rest.MiddlewareSimple(func(handler rest.HandlerFunc) rest.HandlerFunc {
		return func(writer rest.ResponseWriter, request *rest.Request) {
			if request.Method != http.MethodGet && r.Observer.IsMaster() == false {
				writer.WriteJson(Response{Status: StatusServiceUnavailable, Message: "use the master instance"})
				return
			}
			handler(writer, request)
		}
	}))
	// Middleware to set the CORS header.
	api.Use(rest.MiddlewareSimple(func(handler rest.HandlerFunc) rest.HandlerFunc {
		return func(writer rest.ResponseWriter, request *rest.Request) {
			writer.Header().Set("Access-Control-Allow-Origin", "*")
			handler(writer, request)
		}
	}))
	if r.Auth != nil {
		api.Use(&rest.AuthBasicMiddleware{
			Realm: "comosat",
			Authenticator: func(username string, password string) bool {
				ok, err := r.Auth.Auth(username, password)
				if err != nil {
					logger.Errorf("failed to authenticate %v: %v", username, err)
					return false
				}
				return ok
			},
		})
	}

	router, err := rest.MakeRouter(
		rest.Get("/api/v1/stats", r.stats),
		rest.Get("/api/v1/membership", r.membership),
		rest.Get("/api/v1/slot", r.slot),
		rest.Post("/api/v1/slot/advance", r.advance),
		rest.Get("/api/v1/switches", r.switches),
		rest.Get("/api/v1/history", r.history),
		rest.Get("/api/v1/reports", r.reports),
	)
	if err != nil {
		return err
	}
	api.SetApp(router)

	// Listen on all interfaces.
	addr := fmt.Sprintf(":%v", r.Port)
	if r.TLS.Cert != "" && r.TLS.Key != "" {
		err = http.ListenAndServeTLS(addr, r.TLS.Cert, r.TLS.Key, api.MakeHandler())
	} else {
		err = http.ListenAndServe(addr, api.MakeHandler())
	}

	return err
}
