// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// DASHBOARD PLAN TYPES
// =============================================================================

// Plan is one generated task/resource plan as listed on the dashboard.
type Plan struct {
	PlanID    string     `json:"planId"`
	SessionID string     `json:"sessionId"`
	PlanType  string     `json:"planType"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	Tasks     []Task     `json:"tasks"`
	Resources []Resource `json:"resources"`
}

// PlanGroup groups a session's plans for the dashboard card layout.
type PlanGroup struct {
	SessionID string `json:"sessionId"`
	Plans     []Plan `json:"topics"`
}

// GroupPlansBySession buckets a flat plan listing by originating session,
// preserving listing order within each group.
func GroupPlansBySession(plans []Plan) []PlanGroup {
	index := make(map[string]int)
	var groups []PlanGroup
	for _, p := range plans {
		i, ok := index[p.SessionID]
		if !ok {
			i = len(groups)
			index[p.SessionID] = i
			groups = append(groups, PlanGroup{SessionID: p.SessionID})
		}
		groups[i].Plans = append(groups[i].Plans, p)
	}
	return groups
}
