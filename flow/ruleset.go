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

package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// RuleSet is the complete set of rules one switch should have installed.
// Rules are keyed by their match key, so a set never carries two rules
// with overlapping matches. The zero value is not usable; use NewRuleSet.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		rules: map[string]Rule{},
	}
}

// Add adds a rule to this set. It returns an error if the set already
// carries a rule whose match overlaps with the new one.
func (r *RuleSet) Add(rule Rule) error {
	key := rule.Key()
	if prev, ok := r.rules[key]; ok {
		return errors.Errorf("overlapping match: new=%v, old=%v", rule, prev)
	}
	r.rules[key] = rule

	return nil
}

// Get returns the rule stored under key, if any.
func (r *RuleSet) Get(key string) (rule Rule, ok bool) {
	rule, ok = r.rules[key]
	return rule, ok
}

// Len returns the number of rules in this set.
func (r *RuleSet) Len() int {
	return len(r.rules)
}

// Rules returns all rules of this set ordered by descending priority and
// then by ascending match key. The order is deterministic so that two
// equal sets always enumerate identically.
func (r *RuleSet) Rules() []Rule {
	v := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		v = append(v, rule)
	}
	sort.Slice(v, func(i, j int) bool {
		if v[i].Priority != v[j].Priority {
			return v[i].Priority > v[j].Priority
		}
		return v[i].Key() < v[j].Key()
	})

	return v
}

func (r *RuleSet) String() string {
	v := make([]string, 0, len(r.rules))
	for _, rule := range r.Rules() {
		v = append(v, rule.String())
	}

	return fmt.Sprintf("[%v]", strings.Join(v, ", "))
}
