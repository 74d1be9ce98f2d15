package api

import (
	"fmt"

	"fleetopt/internal/model"
)

func validateSolveRequest(req *model.SolveRequest) error {
	switch req.Config.Objective {
	case "", model.ObjectiveDistance, model.ObjectiveTime, model.ObjectiveBalanced:
	default:
		return fmt.Errorf("invalid objective: %s", req.Config.Objective)
	}
	if tf := req.Config.TrafficFactor; tf != nil && (*tf < 0 || *tf > 100) {
		return fmt.Errorf("traffic_factor must be in [0,100]")
	}
	if req.Config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0")
	}
	if err := validCoord(req.Config.Depot.Lat, req.Config.Depot.Lng); err != nil {
		return fmt.Errorf("depot: %w", err)
	}
	for i := range req.Orders {
		o := &req.Orders[i]
		if o.ID == "" {
			return fmt.Errorf("order %d: id required", i)
		}
		if err := validCoord(o.Lat, o.Lng); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	for i := range req.Vehicles {
		v := &req.Vehicles[i]
		if v.ID == "" {
			return fmt.Errorf("vehicle %d: id required", i)
		}
		if v.MaxWeight < 0 || v.MaxVolume < 0 {
			return fmt.Errorf("vehicle %s: capacities must be >= 0", v.ID)
		}
		if (v.OriginLat == nil) != (v.OriginLng == nil) {
			return fmt.Errorf("vehicle %s: origin_lat and origin_lng must be set together", v.ID)
		}
		if v.OriginLat != nil {
			if err := validCoord(*v.OriginLat, *v.OriginLng); err != nil {
				return fmt.Errorf("vehicle %s: %w", v.ID, err)
			}
		}
	}
	return nil
}

func validCoord(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("lat %f out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("lng %f out of range", lng)
	}
	return nil
}
