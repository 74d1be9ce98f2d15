package solve

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"fleetopt/internal/engine"
	"fleetopt/internal/geo"
	"fleetopt/internal/model"
	"fleetopt/internal/trace"
	"fleetopt/internal/travel"
)

func testPlanner() *Planner {
	return &Planner{
		Engine: &engine.ALNS{MaxIterations: 400},
		Tracer: trace.Nop(),
	}
}

func sptr(s string) *string { return &s }

func testOrder(id string, lat, lng float64) model.Order {
	return model.Order{ID: id, TrackingID: "t-" + id, Address: "addr " + id, Lat: lat, Lng: lng}
}

func testVehicle(id string) model.Vehicle {
	return model.Vehicle{ID: id, Identifier: "v-" + id, MaxWeight: 10000, MaxVolume: 10000}
}

func testConfig() model.Config {
	return model.Config{
		Depot: model.Depot{
			Lat: 0, Lng: 0,
			TimeWindowStart: sptr("08:00"),
			TimeWindowEnd:   sptr("18:00"),
		},
	}
}

func TestSolveZeroOrders(t *testing.T) {
	resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(resp.Routes) != 0 || len(resp.Unassigned) != 0 {
		t.Fatalf("want empty response, got %d routes, %d unassigned", len(resp.Routes), len(resp.Unassigned))
	}
	if resp.Routes == nil || resp.Unassigned == nil {
		t.Fatal("routes and unassigned must serialize as [], not null")
	}
	if resp.Metrics.TotalDistance != 0 || resp.Metrics.TotalStops != 0 {
		t.Fatalf("want zero metrics, got %+v", resp.Metrics)
	}
}

func TestSolveZeroVehicles(t *testing.T) {
	resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
		Orders: []model.Order{testOrder("o1", 0.01, 0), testOrder("o2", 0.02, 0)},
		Config: testConfig(),
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(resp.Routes) != 0 {
		t.Fatalf("want no routes, got %d", len(resp.Routes))
	}
	if len(resp.Unassigned) != 2 {
		t.Fatalf("want 2 unassigned, got %d", len(resp.Unassigned))
	}
	for _, u := range resp.Unassigned {
		if u.Reason != reasonNoVehicles {
			t.Fatalf("unexpected reason %q", u.Reason)
		}
	}
}

func TestSolveSkillMismatch(t *testing.T) {
	frozen := testOrder("o-frozen", 0.01, 0)
	frozen.Skills = []string{"frozen", "hazmat"}
	plain := testOrder("o-plain", 0.02, 0)

	resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
		Orders:   []model.Order{frozen, plain},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	found := false
	for _, u := range resp.Unassigned {
		if u.OrderID == "o-frozen" {
			found = true
			if u.Reason != "No vehicle has required skills: frozen, hazmat" {
				t.Fatalf("unexpected reason %q", u.Reason)
			}
		}
	}
	if !found {
		t.Fatal("skill-infeasible order missing from unassigned")
	}
	for _, r := range resp.Routes {
		for _, s := range r.Stops {
			if s.OrderID == "o-frozen" {
				t.Fatal("skill-infeasible order appeared in a route")
			}
		}
	}
}

func TestSolveSingleOrderArrivalClock(t *testing.T) {
	resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
		Orders:   []model.Order{testOrder("o1", 0.01, 0)},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(resp.Routes) != 1 || len(resp.Routes[0].Stops) != 1 {
		t.Fatalf("want exactly one route with one stop, got %+v", resp.Routes)
	}
	stop := resp.Routes[0].Stops[0]
	// Fallback leg at default traffic (multiplier 1): depot open plus the
	// inflated geodesic travel time.
	leg := geo.Haversine(geo.Point{}, geo.Point{Lat: 0.01}) * travel.RoadFactor
	want := 28800 + leg/travel.DefaultSpeedMPS
	if stop.ArrivalTime == nil || math.Abs(*stop.ArrivalTime-want) > 1e-6 {
		t.Fatalf("arrival = %v, want %.3f", stop.ArrivalTime, want)
	}
	if stop.WaitingTime == nil || *stop.WaitingTime != 0 {
		t.Fatalf("waiting = %v, want 0", stop.WaitingTime)
	}
	if resp.Metrics.BalanceScore == nil || *resp.Metrics.BalanceScore != 1.0 {
		t.Fatalf("single-route balance = %v, want 1.0", resp.Metrics.BalanceScore)
	}
}

func TestSolveOpenStartArrivalClock(t *testing.T) {
	cfg := testConfig()
	cfg.OpenStart = true
	resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
		Orders:   []model.Order{testOrder("o1", 0.01, 0)},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(resp.Routes) != 1 || len(resp.Routes[0].Stops) != 1 {
		t.Fatalf("want exactly one route with one stop, got %+v", resp.Routes)
	}
	// open_start relaxes the shift window but reported arrivals still count
	// from the depot's opening time.
	stop := resp.Routes[0].Stops[0]
	leg := geo.Haversine(geo.Point{}, geo.Point{Lat: 0.01}) * travel.RoadFactor
	want := 28800 + leg/travel.DefaultSpeedMPS
	if stop.ArrivalTime == nil || math.Abs(*stop.ArrivalTime-want) > 1e-6 {
		t.Fatalf("arrival = %v, want %.3f", stop.ArrivalTime, want)
	}
}

func TestBuildModelOpenStartShiftWindow(t *testing.T) {
	mins := 60.0
	req := &model.SolveRequest{
		Orders:   []model.Order{testOrder("o1", 0.01, 0)},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	}
	req.Config.OpenStart = true
	req.Config.MaxTravelTimeMinutes = &mins
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	v := b.problem.Vehicles[0]
	if v.TWStart != 0 {
		t.Fatalf("shift start = %d, want 0 under open_start", v.TWStart)
	}
	// The travel-time ceiling shortens the shift from the depot opening at
	// 08:00, not from the relaxed start.
	if v.TWEnd != 28800+3600 {
		t.Fatalf("shift end = %d, want %d", v.TWEnd, 28800+3600)
	}
	if b.depotOpen != 28800 {
		t.Fatalf("depotOpen = %d, want 28800", b.depotOpen)
	}
}

func TestSolveOpenEndSkipsReturnLeg(t *testing.T) {
	solveWith := func(mode string) *model.SolveResponse {
		cfg := testConfig()
		cfg.RouteEndMode = sptr(mode)
		resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
			Orders:   []model.Order{testOrder("o1", 0.01, 0)},
			Vehicles: []model.Vehicle{testVehicle("v1")},
			Config:   cfg,
		})
		if err != nil {
			t.Fatalf("Solve(%s): %v", mode, err)
		}
		if len(resp.Routes) != 1 {
			t.Fatalf("Solve(%s): want 1 route, got %d", mode, len(resp.Routes))
		}
		return resp
	}

	open := solveWith(model.RouteEndOpen)
	closed := solveWith(model.RouteEndReturnToDepot)
	if got, want := closed.Routes[0].TotalDistance, 2*open.Routes[0].TotalDistance; math.Abs(got-want) > 0.2 {
		t.Fatalf("return-to-depot distance %v, want ~double the open-end %v", got, open.Routes[0].TotalDistance)
	}
}

func TestBuildModelBalancedCap(t *testing.T) {
	req := &model.SolveRequest{
		Orders: []model.Order{
			testOrder("o1", 0.01, 0), testOrder("o2", 0.02, 0),
			testOrder("o3", 0.03, 0), testOrder("o4", 0.04, 0),
		},
		Vehicles: []model.Vehicle{testVehicle("v1"), testVehicle("v2")},
		Config:   testConfig(),
	}
	req.Config.BalanceVisits = true
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	// No physical demand, so the only dimension is the order count:
	// ceil(4/2)+1 = 3 per vehicle.
	for _, v := range b.problem.Vehicles {
		if len(v.Capacity) != 1 || v.Capacity[0] != 3 {
			t.Fatalf("capacity = %v, want [3]", v.Capacity)
		}
	}
}

func TestBuildModelEndDepotPolicy(t *testing.T) {
	lat, lng := 0.5, 0.5
	withOrigin := testVehicle("v1")
	withOrigin.OriginLat, withOrigin.OriginLng = &lat, &lng

	cases := []struct {
		mode    string
		wantEnd int
	}{
		{model.RouteEndReturnToDepot, 0},
		{model.RouteEndSpecificDepot, 0},
		{model.RouteEndDriverOrigin, 1},
		{"SOMETHING_ELSE", 1},
		{model.RouteEndOpen, 1},
	}
	for _, tc := range cases {
		req := &model.SolveRequest{
			Orders:   []model.Order{testOrder("o1", 0.01, 0)},
			Vehicles: []model.Vehicle{withOrigin},
			Config:   testConfig(),
		}
		req.Config.RouteEndMode = sptr(tc.mode)
		b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
		if err != nil {
			t.Fatalf("buildModel(%s): %v", tc.mode, err)
		}
		if b.vehicleStart[0] != 1 {
			t.Fatalf("%s: start depot = %d, want 1 (own origin)", tc.mode, b.vehicleStart[0])
		}
		if b.vehicleEnd[0] != tc.wantEnd {
			t.Fatalf("%s: end depot = %d, want %d", tc.mode, b.vehicleEnd[0], tc.wantEnd)
		}
		if (tc.mode == model.RouteEndOpen) != b.openEnd {
			t.Fatalf("%s: openEnd = %v", tc.mode, b.openEnd)
		}
	}
}

func TestBuildModelFallbackMatrixExact(t *testing.T) {
	traffic := 0
	req := &model.SolveRequest{
		Orders:   []model.Order{testOrder("o1", 0.01, 0), testOrder("o2", 0, 0.01)},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	}
	req.Config.TrafficFactor = &traffic
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	if !b.oracle.Fallback() {
		t.Fatal("nil table must flip the oracle to fallback")
	}
	durMult := travel.DurationMultiplier(traffic) // 1/1.5
	pts := b.points
	n := len(pts)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				if b.problem.Distance[i][j] != 0 || b.problem.Duration[i][j] != 0 {
					t.Fatalf("self loop (%d,%d) not zero", i, j)
				}
				continue
			}
			dist := geo.Haversine(pts[i], pts[j]) * travel.RoadFactor
			wantDist := int64(math.Round(dist))
			wantDur := int64(math.Round(dist / travel.DefaultSpeedMPS * durMult))
			if b.problem.Distance[i][j] != wantDist {
				t.Fatalf("dist[%d][%d] = %d, want %d", i, j, b.problem.Distance[i][j], wantDist)
			}
			if b.problem.Duration[i][j] != wantDur {
				t.Fatalf("dur[%d][%d] = %d, want %d", i, j, b.problem.Duration[i][j], wantDur)
			}
		}
	}
}

type fakeEngine struct {
	mu    sync.Mutex
	seeds []int64
	solve func(p *engine.Problem, seed int64) (*engine.Solution, error)
}

func (f *fakeEngine) Solve(_ context.Context, p *engine.Problem, seed int64, _ time.Duration) (*engine.Solution, error) {
	f.mu.Lock()
	f.seeds = append(f.seeds, seed)
	f.mu.Unlock()
	if f.solve != nil {
		return f.solve(p, seed)
	}
	return nil, engine.ErrNoSolution
}

func manyOrders(n int) []model.Order {
	out := make([]model.Order, n)
	for i := range out {
		out[i] = testOrder(string(rune('a'+i)), 0.01+float64(i)*0.001, 0)
	}
	return out
}

func TestOrchestrateSingleRunSeed(t *testing.T) {
	req := &model.SolveRequest{
		Orders:   manyOrders(5),
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	}
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	fe := &fakeEngine{solve: func(p *engine.Problem, seed int64) (*engine.Solution, error) {
		return &engine.Solution{Routes: []engine.Route{{Vehicle: 0, Visits: []int{1}}}, Distance: 1}, nil
	}}
	if _, err := orchestrate(context.Background(), fe, b, &req.Config, trace.Nop()); err != nil {
		t.Fatalf("orchestrate: %v", err)
	}
	if len(fe.seeds) != 1 || fe.seeds[0] != 1 {
		t.Fatalf("seeds = %v, want [1]", fe.seeds)
	}
}

func TestOrchestrateMultiStartSeedsAndBest(t *testing.T) {
	req := &model.SolveRequest{
		Orders:   manyOrders(12),
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	}
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	fe := &fakeEngine{solve: func(p *engine.Problem, seed int64) (*engine.Solution, error) {
		if seed == 43 {
			return nil, engine.ErrNoSolution
		}
		return &engine.Solution{
			Routes:   []engine.Route{{Vehicle: 0, Visits: []int{1}}},
			Distance: seed * 100,
		}, nil
	}}
	sol, err := orchestrate(context.Background(), fe, b, &req.Config, trace.Nop())
	if err != nil {
		t.Fatalf("orchestrate: %v", err)
	}
	sort.Slice(fe.seeds, func(i, j int) bool { return fe.seeds[i] < fe.seeds[j] })
	if len(fe.seeds) != 3 || fe.seeds[0] != 1 || fe.seeds[1] != 43 || fe.seeds[2] != 85 {
		t.Fatalf("seeds = %v, want [1 43 85]", fe.seeds)
	}
	if sol.Distance != 100 {
		t.Fatalf("best distance = %d, want the seed-1 run (100)", sol.Distance)
	}
}

func TestOrchestrateAllInfeasible(t *testing.T) {
	req := &model.SolveRequest{
		Orders:   manyOrders(12),
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	}
	b, err := buildModel(context.Background(), req, req.Orders, nil, trace.Nop())
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	fe := &fakeEngine{}
	if _, err := orchestrate(context.Background(), fe, b, &req.Config, trace.Nop()); err != engine.ErrNoSolution {
		t.Fatalf("want ErrNoSolution, got %v", err)
	}
}

func TestSolveNoSolutionMarksAllUnassigned(t *testing.T) {
	pl := &Planner{Engine: &fakeEngine{}, Tracer: trace.Nop()}
	resp, err := pl.Solve(context.Background(), &model.SolveRequest{
		Orders:   []model.Order{testOrder("o1", 0.01, 0), testOrder("o2", 0.02, 0)},
		Vehicles: []model.Vehicle{testVehicle("v1")},
		Config:   testConfig(),
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(resp.Routes) != 0 || len(resp.Unassigned) != 2 {
		t.Fatalf("want 0 routes and 2 unassigned, got %d/%d", len(resp.Routes), len(resp.Unassigned))
	}
	for _, u := range resp.Unassigned {
		if u.Reason != reasonUnroutable {
			t.Fatalf("unexpected reason %q", u.Reason)
		}
	}
}

func TestSearchBudget(t *testing.T) {
	cases := []struct {
		orders, timeout int
		want            time.Duration
	}{
		{3, 0, 5 * time.Second},
		{5, 0, 15 * time.Second},
		{25, 0, 30 * time.Second},
		{80, 0, 60 * time.Second},
		{80, 10, 10 * time.Second},
		{200, 0, 60 * time.Second},
		{200, 120, 120 * time.Second},
	}
	for _, tc := range cases {
		if got := searchBudget(tc.orders, tc.timeout); got != tc.want {
			t.Errorf("searchBudget(%d, %d) = %v, want %v", tc.orders, tc.timeout, got, tc.want)
		}
	}
}

func TestBalanceScore(t *testing.T) {
	routes := func(counts ...int) []model.Route {
		out := make([]model.Route, len(counts))
		for i, c := range counts {
			out[i].Stops = make([]model.Stop, c)
		}
		return out
	}
	if got := balanceScore(routes(4)); got != 1.0 {
		t.Fatalf("single route: %v, want 1.0", got)
	}
	if got := balanceScore(routes(3, 3, 3)); got != 1.0 {
		t.Fatalf("even routes: %v, want 1.0", got)
	}
	// counts 1 and 3: mean 2, population sd 1, cv 0.5, score 0.75.
	if got := balanceScore(routes(1, 3)); got != 0.75 {
		t.Fatalf("uneven routes: %v, want 0.75", got)
	}
	if got := balanceScore(routes(0, 0)); got != 1.0 {
		t.Fatalf("empty routes: %v, want 1.0", got)
	}
}

func TestTrafficMultiplierEndToEnd(t *testing.T) {
	durationAt := func(traffic int) float64 {
		cfg := testConfig()
		cfg.TrafficFactor = &traffic
		resp, err := testPlanner().Solve(context.Background(), &model.SolveRequest{
			Orders:   []model.Order{testOrder("o1", 0.01, 0)},
			Vehicles: []model.Vehicle{testVehicle("v1")},
			Config:   cfg,
		})
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if len(resp.Routes) != 1 {
			t.Fatalf("want 1 route, got %d", len(resp.Routes))
		}
		return resp.Routes[0].TotalTravelTime
	}
	free := durationAt(0)     // multiplier 2/3
	jammed := durationAt(100) // multiplier 2
	if math.Abs(jammed-3*free) > 0.5 {
		t.Fatalf("traffic 100 travel %v, want 3x the traffic-0 travel %v", jammed, free)
	}
}
