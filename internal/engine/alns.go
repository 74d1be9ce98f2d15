package engine

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// ALNS is an adaptive large-neighborhood search over the assembled model:
// destroy/repair operators with roulette-wheel selection, simulated-annealing
// acceptance, and a 2-opt polish per iteration. A single call is one seeded
// run; multi-start is the caller's concern.
type ALNS struct {
	MaxIterations int     // 0 = bounded by budget only
	InitTemp      float64 // default 1.0
	Cooling       float64 // default 0.995
}

// NewALNS returns an engine with default parameters.
func NewALNS() *ALNS { return &ALNS{} }

// Name identifies the engine for the liveness endpoint.
func (a *ALNS) Name() string { return "alns" }

// penalty for a required client left out of every route; dwarfs any realistic
// route cost without overflowing the float64 cost space.
const unassignedPenalty = 10_000_000

func (a *ALNS) Solve(ctx context.Context, p *Problem, seed int64, budget time.Duration) (*Solution, error) {
	if len(p.Clients) == 0 || len(p.Vehicles) == 0 {
		return nil, ErrNoSolution
	}
	rng := rand.New(rand.NewSource(seed))

	cur := seedState(p)
	best := cur.clone()
	curCost := cost(p, cur)
	bestCost := curCost

	temp := a.InitTemp
	if temp <= 0 {
		temp = 1.0
	}
	cool := a.Cooling
	if cool <= 0 || cool >= 1 {
		cool = 0.995
	}
	remW := []float64{1, 1} // random, shaw
	insW := []float64{1, 1} // greedy, regret2

	deadline := time.Now().Add(budget)
	iter := 0
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		iter++
		if a.MaxIterations > 0 && iter > a.MaxIterations {
			break
		}

		cand := cur.clone()
		k := 1 + rng.Intn(3)
		op := selectOp(remW, rng)
		var removed []int
		switch op {
		case 0:
			removed = cand.removeRandom(k, rng)
		default:
			removed = cand.removeShaw(p, k, rng)
		}
		pool := append(removed, cand.unassignedClients()...)
		ip := selectOp(insW, rng)
		switch ip {
		case 0:
			cand.insertGreedy(p, pool)
		default:
			cand.insertRegret(p, pool)
		}
		cand.twoOpt(p)

		cCost := cost(p, cand)
		delta := cCost - curCost
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			cur = cand
			curCost = cCost
			if cCost < bestCost {
				best = cand.clone()
				bestCost = cCost
				remW[op] += 0.1
				insW[ip] += 0.1
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
			}
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
		}
		temp *= cool
	}

	return best.toSolution(p)
}

// state is a working assignment: per-vehicle client index sequences.
type state struct {
	routes   [][]int
	assigned []bool
}

func newState(p *Problem) *state {
	return &state{
		routes:   make([][]int, len(p.Vehicles)),
		assigned: make([]bool, len(p.Clients)),
	}
}

func (s *state) clone() *state {
	out := &state{
		routes:   make([][]int, len(s.routes)),
		assigned: append([]bool(nil), s.assigned...),
	}
	for i, r := range s.routes {
		out.routes[i] = append([]int(nil), r...)
	}
	return out
}

func (s *state) unassignedClients() []int {
	var out []int
	for c, ok := range s.assigned {
		if !ok {
			out = append(out, c)
		}
	}
	return out
}

// seedState greedily inserts every client at its cheapest feasible position.
func seedState(p *Problem) *state {
	s := newState(p)
	pool := make([]int, len(p.Clients))
	for i := range pool {
		pool[i] = i
	}
	s.insertGreedy(p, pool)
	return s
}

// schedule walks a route and returns its distance (m), elapsed time (s, from
// the vehicle's shift start, including waits and service), and feasibility
// against client windows and the vehicle's closing time.
func schedule(p *Problem, vi int, route []int) (dist, elapsed int64, ok bool) {
	if len(route) == 0 {
		return 0, 0, true
	}
	v := &p.Vehicles[vi]
	loc := v.StartDepot
	t := v.TWStart
	for _, c := range route {
		cl := &p.Clients[c]
		l := p.ClientLoc(c)
		t += p.Duration[loc][l]
		dist += p.Distance[loc][l]
		if t < cl.TWStart {
			t = cl.TWStart
		}
		if t > cl.TWEnd {
			return 0, 0, false
		}
		t += cl.ServiceSec
		loc = l
	}
	t += p.Duration[loc][v.EndDepot]
	dist += p.Distance[loc][v.EndDepot]
	if t > v.TWEnd {
		return 0, 0, false
	}
	return dist, t - v.TWStart, true
}

func capacityOK(p *Problem, vi int, route []int, extra int) bool {
	v := &p.Vehicles[vi]
	load := make([]int64, len(v.Capacity))
	add := func(c int) {
		for d, q := range p.Clients[c].Delivery {
			if d < len(load) {
				load[d] += q
			}
		}
	}
	for _, c := range route {
		add(c)
	}
	if extra >= 0 {
		add(extra)
	}
	for d, q := range load {
		if q > v.Capacity[d] {
			return false
		}
	}
	return true
}

func feasibleAt(p *Problem, vi int, route []int, c, pos int) bool {
	if !capacityOK(p, vi, route, c) {
		return false
	}
	cand := make([]int, 0, len(route)+1)
	cand = append(cand, route[:pos]...)
	cand = append(cand, c)
	cand = append(cand, route[pos:]...)
	_, _, ok := schedule(p, vi, cand)
	return ok
}

// insertDelta approximates the marginal distance of inserting c at pos.
func insertDelta(p *Problem, vi int, route []int, c, pos int) int64 {
	v := &p.Vehicles[vi]
	prev := v.StartDepot
	if pos > 0 {
		prev = p.ClientLoc(route[pos-1])
	}
	next := v.EndDepot
	if pos < len(route) {
		next = p.ClientLoc(route[pos])
	}
	l := p.ClientLoc(c)
	return p.Distance[prev][l] + p.Distance[l][next] - p.Distance[prev][next]
}

func (s *state) insertAt(vi, c, pos int) {
	route := s.routes[vi]
	route = append(route, 0)
	copy(route[pos+1:], route[pos:])
	route[pos] = c
	s.routes[vi] = route
	s.assigned[c] = true
}

// insertGreedy repeatedly places the globally cheapest feasible (client,
// route, position) until nothing fits. Clients that fit nowhere stay
// unassigned.
func (s *state) insertGreedy(p *Problem, pool []int) {
	remaining := append([]int(nil), pool...)
	for len(remaining) > 0 {
		bestN, bestV, bestPos := -1, -1, -1
		bestDelta := int64(math.MaxInt64)
		for ni, c := range remaining {
			for vi, route := range s.routes {
				for pos := 0; pos <= len(route); pos++ {
					if !feasibleAt(p, vi, route, c, pos) {
						continue
					}
					d := insertDelta(p, vi, route, c, pos)
					if d < bestDelta {
						bestDelta = d
						bestN, bestV, bestPos = ni, vi, pos
					}
				}
			}
		}
		if bestN < 0 {
			return
		}
		s.insertAt(bestV, remaining[bestN], bestPos)
		remaining = append(remaining[:bestN], remaining[bestN+1:]...)
	}
}

// insertRegret places clients by regret-2: the client whose second-best spot
// is much worse than its best goes first.
func (s *state) insertRegret(p *Problem, pool []int) {
	remaining := append([]int(nil), pool...)
	for len(remaining) > 0 {
		bestN, bestV, bestPos := -1, -1, -1
		bestRegret := int64(-1)
		bestPrimary := int64(math.MaxInt64)
		for ni, c := range remaining {
			best1 := int64(math.MaxInt64)
			best2 := int64(math.MaxInt64)
			bv, bpos := -1, -1
			for vi, route := range s.routes {
				for pos := 0; pos <= len(route); pos++ {
					if !feasibleAt(p, vi, route, c, pos) {
						continue
					}
					d := insertDelta(p, vi, route, c, pos)
					if d < best1 {
						best2 = best1
						best1 = d
						bv, bpos = vi, pos
					} else if d < best2 {
						best2 = d
					}
				}
			}
			if bv < 0 {
				continue
			}
			regret := int64(0)
			if best2 != math.MaxInt64 {
				regret = best2 - best1
			}
			if regret > bestRegret || (regret == bestRegret && best1 < bestPrimary) {
				bestRegret = regret
				bestPrimary = best1
				bestN, bestV, bestPos = ni, bv, bpos
			}
		}
		if bestN < 0 {
			return
		}
		s.insertAt(bestV, remaining[bestN], bestPos)
		remaining = append(remaining[:bestN], remaining[bestN+1:]...)
	}
}

func (s *state) removeClient(c int) {
	for vi, route := range s.routes {
		for i, rc := range route {
			if rc == c {
				s.routes[vi] = append(route[:i], route[i+1:]...)
				s.assigned[c] = false
				return
			}
		}
	}
}

func (s *state) assignedClients() []int {
	var out []int
	for c, ok := range s.assigned {
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *state) removeRandom(k int, rng *rand.Rand) []int {
	all := s.assignedClients()
	var removed []int
	for i := 0; i < k && len(all) > 0; i++ {
		j := rng.Intn(len(all))
		removed = append(removed, all[j])
		s.removeClient(all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return removed
}

// removeShaw removes a random seed client plus its k-1 geographically closest
// assigned neighbors.
func (s *state) removeShaw(p *Problem, k int, rng *rand.Rand) []int {
	all := s.assignedClients()
	if len(all) == 0 {
		return nil
	}
	seedClient := all[rng.Intn(len(all))]
	seedLoc := p.ClientLoc(seedClient)
	type rel struct {
		c    int
		dist int64
	}
	var rels []rel
	for _, c := range all {
		if c == seedClient {
			continue
		}
		rels = append(rels, rel{c: c, dist: p.Distance[seedLoc][p.ClientLoc(c)]})
	}
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			if rels[j].dist < rels[i].dist {
				rels[i], rels[j] = rels[j], rels[i]
			}
		}
	}
	removed := []int{seedClient}
	s.removeClient(seedClient)
	for i := 0; i < len(rels) && len(removed) < k; i++ {
		removed = append(removed, rels[i].c)
		s.removeClient(rels[i].c)
	}
	return removed
}

// twoOpt reverses intra-route segments while that shortens the route and
// keeps it feasible.
func (s *state) twoOpt(p *Problem) {
	for vi, route := range s.routes {
		n := len(route)
		if n < 3 {
			continue
		}
		baseDist, _, ok := schedule(p, vi, route)
		if !ok {
			continue
		}
		improved := true
		for improved {
			improved = false
			for i := 0; i < n-1; i++ {
				for k := i + 1; k < n; k++ {
					cand := append([]int(nil), route...)
					for a, b := i, k; a < b; a, b = a+1, b-1 {
						cand[a], cand[b] = cand[b], cand[a]
					}
					d, _, ok := schedule(p, vi, cand)
					if ok && d < baseDist {
						route = cand
						baseDist = d
						improved = true
					}
				}
			}
		}
		s.routes[vi] = route
	}
}

// cost scores a state: per-route weighted distance/duration plus fixed
// vehicle costs, plus a heavy penalty for each client left out (softened to
// the prize alone for optional clients).
func cost(p *Problem, s *state) float64 {
	total := 0.0
	for vi, route := range s.routes {
		if len(route) == 0 {
			continue
		}
		v := &p.Vehicles[vi]
		dist, elapsed, ok := schedule(p, vi, route)
		if !ok {
			return math.MaxFloat64
		}
		total += float64(v.UnitDistanceCost*dist + v.UnitDurationCost*elapsed + v.FixedCost)
	}
	for c, ok := range s.assigned {
		if ok {
			continue
		}
		cl := &p.Clients[c]
		if cl.Required {
			total += unassignedPenalty + float64(cl.Prize)
		} else {
			total += float64(cl.Prize)
		}
	}
	return total
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func (s *state) toSolution(p *Problem) (*Solution, error) {
	sol := &Solution{}
	for vi, route := range s.routes {
		if len(route) == 0 {
			continue
		}
		dist, elapsed, ok := schedule(p, vi, route)
		if !ok {
			continue
		}
		visits := make([]int, len(route))
		for i, c := range route {
			visits[i] = p.ClientLoc(c)
		}
		sol.Routes = append(sol.Routes, Route{Vehicle: vi, Visits: visits})
		sol.Distance += dist
		sol.Duration += elapsed
	}
	if len(sol.Routes) == 0 {
		return nil, ErrNoSolution
	}
	return sol, nil
}
