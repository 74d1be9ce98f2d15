package engine

import (
	"context"
	"testing"
	"time"
)

// square grid problem: one depot at origin, clients on a line east of it,
// planar distances in meters, durations at ~10 m/s.
func lineProblem(clients, vehicles int, capPerVehicle int64) *Problem {
	p := &Problem{
		Depots: []Depot{{X: 0, Y: 0, TWStart: 0, TWEnd: 86400}},
	}
	for v := 0; v < vehicles; v++ {
		p.Vehicles = append(p.Vehicles, VehicleType{
			Name:             "veh",
			Capacity:         []int64{capPerVehicle},
			StartDepot:       0,
			EndDepot:         0,
			TWStart:          0,
			TWEnd:            86400,
			UnitDistanceCost: 1,
		})
	}
	for c := 0; c < clients; c++ {
		p.Clients = append(p.Clients, Client{
			Name:       "order",
			X:          (c + 1) * 1000,
			Y:          0,
			Delivery:   []int64{1},
			ServiceSec: 60,
			TWStart:    0,
			TWEnd:      86400,
			Required:   true,
		})
	}
	n := p.NumLocations()
	xs := make([]int, n)
	for i := range p.Depots {
		xs[i] = p.Depots[i].X
	}
	for i := range p.Clients {
		xs[len(p.Depots)+i] = p.Clients[i].X
	}
	p.Distance = make([][]int64, n)
	p.Duration = make([][]int64, n)
	for i := 0; i < n; i++ {
		p.Distance[i] = make([]int64, n)
		p.Duration[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			d := int64(xs[i] - xs[j])
			if d < 0 {
				d = -d
			}
			p.Distance[i][j] = d
			p.Duration[i][j] = d / 10
		}
	}
	return p
}

func TestALNSServesAllClients(t *testing.T) {
	p := lineProblem(6, 2, 999)
	eng := &ALNS{MaxIterations: 300}
	sol, err := eng.Solve(context.Background(), p, 1, 5*time.Second)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	seen := map[int]bool{}
	for _, r := range sol.Routes {
		for _, loc := range r.Visits {
			if loc < len(p.Depots) {
				t.Fatalf("visit %d is a depot index", loc)
			}
			if seen[loc] {
				t.Fatalf("location %d visited twice", loc)
			}
			seen[loc] = true
		}
	}
	if len(seen) != len(p.Clients) {
		t.Fatalf("served %d of %d clients", len(seen), len(p.Clients))
	}
	if sol.Distance <= 0 || sol.Duration <= 0 {
		t.Fatalf("degenerate totals: dist=%d dur=%d", sol.Distance, sol.Duration)
	}
}

func TestALNSRespectsCapacity(t *testing.T) {
	p := lineProblem(6, 2, 3)
	eng := &ALNS{MaxIterations: 300}
	sol, err := eng.Solve(context.Background(), p, 1, 5*time.Second)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for _, r := range sol.Routes {
		if len(r.Visits) > 3 {
			t.Fatalf("route on vehicle %d has %d visits, capacity is 3", r.Vehicle, len(r.Visits))
		}
	}
}

func TestALNSRespectsClientWindows(t *testing.T) {
	p := lineProblem(3, 1, 999)
	// client 1 only admits arrival late in the day; the schedule must wait,
	// not violate.
	p.Clients[1].TWStart = 40000
	p.Clients[1].TWEnd = 41000
	eng := &ALNS{MaxIterations: 300}
	sol, err := eng.Solve(context.Background(), p, 7, 5*time.Second)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for _, r := range sol.Routes {
		if _, _, ok := schedule(p, r.Vehicle, locsToClients(p, r.Visits)); !ok {
			t.Fatalf("returned route is schedule-infeasible")
		}
	}
}

func TestALNSDeterministicPerSeed(t *testing.T) {
	p := lineProblem(8, 2, 999)
	eng := &ALNS{MaxIterations: 200}
	a, err := eng.Solve(context.Background(), p, 42, 30*time.Second)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	b, err := eng.Solve(context.Background(), p, 42, 30*time.Second)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Distance != b.Distance || len(a.Routes) != len(b.Routes) {
		t.Fatalf("same seed diverged: %+v vs %+v", a, b)
	}
}

func TestALNSNoClientsIsNoSolution(t *testing.T) {
	p := lineProblem(0, 2, 999)
	eng := &ALNS{MaxIterations: 50}
	if _, err := eng.Solve(context.Background(), p, 1, time.Second); err != ErrNoSolution {
		t.Fatalf("want ErrNoSolution, got %v", err)
	}
}

func TestALNSCancelledContextStillReturnsBest(t *testing.T) {
	p := lineProblem(4, 1, 999)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &ALNS{}
	sol, err := eng.Solve(ctx, p, 1, time.Minute)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Routes) == 0 {
		t.Fatal("expected the greedy seed solution despite cancellation")
	}
}

func locsToClients(p *Problem, visits []int) []int {
	out := make([]int, len(visits))
	for i, loc := range visits {
		out[i] = loc - len(p.Depots)
	}
	return out
}
