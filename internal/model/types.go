package model

// Wire types for the solve contract. Field names and units (meters, seconds)
// are normative for existing clients and must not be renamed.

type Order struct {
	ID              string   `json:"id"`
	TrackingID      string   `json:"tracking_id"`
	Address         string   `json:"address"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Weight          float64  `json:"weight,omitempty"`
	Volume          float64  `json:"volume,omitempty"`
	Value           *float64 `json:"value,omitempty"`
	Units           *int     `json:"units,omitempty"`
	OrderType       *string  `json:"order_type,omitempty"`
	Priority        *int     `json:"priority,omitempty"`
	TimeWindowStart *string  `json:"time_window_start,omitempty"`
	TimeWindowEnd   *string  `json:"time_window_end,omitempty"`
	ServiceTime     *int     `json:"service_time,omitempty"` // seconds, default 300
	Skills          []string `json:"skills,omitempty"`
}

// ServiceSeconds returns the order's service duration, defaulting to 300 s.
func (o *Order) ServiceSeconds() int {
	if o.ServiceTime != nil && *o.ServiceTime > 0 {
		return *o.ServiceTime
	}
	return 300
}

type Vehicle struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	MaxWeight   float64  `json:"max_weight"`
	MaxVolume   float64  `json:"max_volume"`
	MaxValue    *float64 `json:"max_value,omitempty"`
	MaxUnits    *int     `json:"max_units,omitempty"`
	MaxOrders   *int     `json:"max_orders,omitempty"`
	OriginLat   *float64 `json:"origin_lat,omitempty"`
	OriginLng   *float64 `json:"origin_lng,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	SpeedFactor *float64 `json:"speed_factor,omitempty"` // reserved, not used in costs yet
}

type Depot struct {
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	TimeWindowStart *string `json:"time_window_start,omitempty"`
	TimeWindowEnd   *string `json:"time_window_end,omitempty"`
}

// Objective modes.
const (
	ObjectiveDistance = "DISTANCE"
	ObjectiveTime     = "TIME"
	ObjectiveBalanced = "BALANCED"
)

// Route end modes.
const (
	RouteEndReturnToDepot = "RETURN_TO_DEPOT"
	RouteEndDriverOrigin  = "DRIVER_ORIGIN"
	RouteEndSpecificDepot = "SPECIFIC_DEPOT"
	RouteEndOpen          = "OPEN_END"
)

type Config struct {
	Depot                Depot    `json:"depot"`
	Objective            string   `json:"objective,omitempty"` // DISTANCE | TIME | BALANCED
	BalanceVisits        bool     `json:"balance_visits,omitempty"`
	MaxDistanceKm        *float64 `json:"max_distance_km,omitempty"`
	MaxTravelTimeMinutes *float64 `json:"max_travel_time_minutes,omitempty"`
	TrafficFactor        *int     `json:"traffic_factor,omitempty"` // 0-100, default 50
	RouteEndMode         *string  `json:"route_end_mode,omitempty"`
	MinimizeVehicles     bool     `json:"minimize_vehicles,omitempty"`
	OpenStart            bool     `json:"open_start,omitempty"`
	FlexibleTimeWindows  bool     `json:"flexible_time_windows,omitempty"`
	MaxRoutes            *int     `json:"max_routes,omitempty"` // reserved, currently not enforced
	TimeoutSeconds       int      `json:"timeout_seconds,omitempty"`
}

// Traffic returns the configured traffic factor, defaulting to 50.
func (c *Config) Traffic() int {
	if c.TrafficFactor != nil {
		return *c.TrafficFactor
	}
	return 50
}

// EndMode returns the configured route end mode, or DRIVER_ORIGIN when unset.
func (c *Config) EndMode() string {
	if c.RouteEndMode != nil && *c.RouteEndMode != "" {
		return *c.RouteEndMode
	}
	return RouteEndDriverOrigin
}

type SolveRequest struct {
	Orders   []Order   `json:"orders"`
	Vehicles []Vehicle `json:"vehicles"`
	Config   Config    `json:"config"`
}

type Stop struct {
	OrderID     string   `json:"order_id"`
	TrackingID  string   `json:"tracking_id"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Sequence    int      `json:"sequence"`
	ArrivalTime *float64 `json:"arrival_time,omitempty"` // seconds from midnight
	ServiceTime *float64 `json:"service_time,omitempty"`
	WaitingTime *float64 `json:"waiting_time,omitempty"`
}

type Route struct {
	VehicleID         string  `json:"vehicle_id"`
	VehicleIdentifier string  `json:"vehicle_identifier"`
	Stops             []Stop  `json:"stops"`
	TotalDistance     float64 `json:"total_distance"` // meters
	TotalDuration     float64 `json:"total_duration"` // seconds, travel + service
	TotalServiceTime  float64 `json:"total_service_time"`
	TotalTravelTime   float64 `json:"total_travel_time"`
	TotalWeight       float64 `json:"total_weight"`
	TotalVolume       float64 `json:"total_volume"`
	Geometry          *string `json:"geometry,omitempty"`
}

type UnassignedOrder struct {
	OrderID    string `json:"order_id"`
	TrackingID string `json:"tracking_id"`
	Reason     string `json:"reason"`
}

type Metrics struct {
	TotalDistance   float64  `json:"total_distance"`
	TotalDuration   float64  `json:"total_duration"`
	TotalRoutes     int      `json:"total_routes"`
	TotalStops      int      `json:"total_stops"`
	ComputingTimeMs float64  `json:"computing_time_ms"`
	BalanceScore    *float64 `json:"balance_score,omitempty"`
}

type SolveResponse struct {
	Routes     []Route           `json:"routes"`
	Unassigned []UnassignedOrder `json:"unassigned"`
	Metrics    Metrics           `json:"metrics"`
}
