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
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// learnCache suppresses duplicated reactive rule installs. A packet-in
// burst for one destination would otherwise send the same learned rule to
// the switch once per packet until the rule takes effect.
type learnCache struct {
	cache      *lru.Cache
	expiration time.Duration
}

func newLearnCache(expiration time.Duration) *learnCache {
	c, err := lru.New(8192)
	if err != nil {
		panic(fmt.Sprintf("failed to init a LRU learn cache: %v", err))
	}

	return &learnCache{
		cache:      c,
		expiration: expiration,
	}
}

func (r *learnCache) key(inPort uint32, dstAddr string) string {
	return fmt.Sprintf("%v/%v", inPort, dstAddr)
}

// Add marks a reactive rule for (inPort, dstAddr) as freshly installed.
// Re-adding an existing entry refreshes its timestamp.
func (r *learnCache) Add(inPort uint32, dstAddr string) {
	key := r.key(inPort, dstAddr)
	t := time.Now()
	r.cache.Add(key, t)
	logger.Debugf("added a new learn cache entry: key=%v, timestamp=%v", key, t)
}

// Suppressed reports whether a reactive install for (inPort, dstAddr) was
// already sent within the expiration window.
func (r *learnCache) Suppressed(inPort uint32, dstAddr string) bool {
	key := r.key(inPort, dstAddr)

	v, ok := r.cache.Get(key)
	if !ok {
		return false
	}
	timestamp := v.(time.Time)

	// Timeout?
	if time.Since(timestamp) > r.expiration {
		r.cache.Remove(key)
		logger.Debugf("removed the timed-out learn cache entry: key=%v", key)
		return false
	}

	return true
}

func (r *learnCache) RemoveAll() {
	r.cache.Purge()
	logger.Debug("removed all the learn cache entries")
}
