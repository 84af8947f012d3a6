// Package routeplan assigns pending home visits to community health worker
// day routes. The planner is a greedy nearest-neighbour heuristic, not a VRP
// solver: highest-priority mothers first, each worker always travels to the
// nearest unvisited stop until the daily visit budget runs out.
package routeplan

import (
	"math"
	"sort"
)

// depotID labels each worker's starting position in the route sequence.
const depotID = "DEPOT"

// blockedPenalty makes a blocked leg lose every nearest-neighbour
// comparison; blockedCutoff then stops a route that has only blocked legs
// left. Penalty must stay well above any real distance on Earth (~20000 km).
const (
	blockedPenalty = 1e6
	blockedCutoff  = 1e5
)

// Visit priority ranks, lowest number served first.
var priorityRank = map[string]int{
	"EMERGENCY": 0,
	"PRIORITY":  1,
	"ROUTINE":   2,
}

// Stop is one mother awaiting a home visit.
type Stop struct {
	ID             string  `json:"id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Priority       string  `json:"priority"`
	DaysPostpartum int     `json:"days_postpartum"`
}

// Worker is a CHW with a base location and a daily visit capacity.
type Worker struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	BaseLat  float64 `json:"base_lat"`
	BaseLng  float64 `json:"base_lng"`
	Capacity int     `json:"capacity"`
}

// Edge is an undirected pair of node IDs (stop IDs or DEPOT) whose leg is
// penalized, e.g. a washed-out road.
type Edge struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Route is the planned day for one worker: the visit sequence starting at
// the depot, and the total travel distance.
type Route struct {
	WorkerID string   `json:"worker_id"`
	Name     string   `json:"chw_name"`
	Sequence []string `json:"sequence"`
	KM       float64  `json:"km"`
	Capacity int      `json:"capacity"`
}

// Plan is the full assignment plus the stops no route could absorb.
type Plan struct {
	Routes   []Route  `json:"routes"`
	Unserved []string `json:"unserved"`
}

// Assign builds day routes greedily. Workers are processed in order; each
// takes the nearest remaining stop until its capacity is spent or every
// reachable stop is blocked. Stops left over land in Plan.Unserved, sorted.
func Assign(stops []Stop, workers []Worker, blocked []Edge) *Plan {
	ranked := make([]Stop, len(stops))
	copy(ranked, stops)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := rankOf(ranked[i].Priority), rankOf(ranked[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return ranked[i].DaysPostpartum > ranked[j].DaysPostpartum
	})

	blockedSet := make(map[Edge]bool, len(blocked))
	for _, e := range blocked {
		blockedSet[normalizeEdge(e)] = true
	}
	isBlocked := func(a, b string) bool {
		return blockedSet[normalizeEdge(Edge{A: a, B: b})]
	}

	unserved := make(map[string]bool, len(ranked))
	for _, s := range ranked {
		unserved[s.ID] = true
	}

	plan := &Plan{Routes: make([]Route, 0, len(workers))}
	for _, w := range workers {
		route := Route{
			WorkerID: w.ID,
			Name:     w.Name,
			Sequence: []string{depotID},
			Capacity: w.Capacity,
		}

		curID := depotID
		curLat, curLng := w.BaseLat, w.BaseLng
		for budget := w.Capacity; budget > 0; budget-- {
			// An emergency is never skipped for a nearer routine visit:
			// candidates are the most urgent tier still unserved, and
			// nearest-neighbour only breaks ties within that tier.
			tier := len(priorityRank) + 2
			for i := range ranked {
				if unserved[ranked[i].ID] {
					if r := rankOf(ranked[i].Priority); r < tier {
						tier = r
					}
				}
			}

			var best *Stop
			bestD := math.Inf(1)
			for i := range ranked {
				s := &ranked[i]
				if !unserved[s.ID] || rankOf(s.Priority) != tier {
					continue
				}
				d := Haversine(curLat, curLng, s.Lat, s.Lng)
				if isBlocked(curID, s.ID) {
					d += blockedPenalty
				}
				if d < bestD {
					best = s
					bestD = d
				}
			}
			if best == nil || bestD > blockedCutoff {
				break
			}

			route.Sequence = append(route.Sequence, best.ID)
			route.KM += bestD
			curID, curLat, curLng = best.ID, best.Lat, best.Lng
			delete(unserved, best.ID)
		}

		route.KM = math.Round(route.KM*100) / 100
		plan.Routes = append(plan.Routes, route)
	}

	plan.Unserved = make([]string, 0, len(unserved))
	for id := range unserved {
		plan.Unserved = append(plan.Unserved, id)
	}
	sort.Strings(plan.Unserved)
	return plan
}

// earthRadiusKM is the mean Earth radius.
const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLng := (lng2 - lng1) * deg

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func rankOf(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return len(priorityRank) + 1
}

func normalizeEdge(e Edge) Edge {
	if e.B < e.A {
		e.A, e.B = e.B, e.A
	}
	return e
}
