// Package capacity derives the integer demand model offered to the
// optimization engine: which load dimensions matter for a request, and the
// aligned per-vehicle capacity and per-order delivery vectors.
package capacity

import (
	"math"

	"fleetopt/internal/model"
)

// Dimension is a demand axis in the capacity model.
type Dimension string

const (
	DimWeight Dimension = "weight"
	DimVolume Dimension = "volume"
	DimValue  Dimension = "value"
	DimUnits  Dimension = "units"
	// DimOrders is a synthetic dimension where every order weighs 1. It caps
	// stop count per vehicle and carries the balancing limit.
	DimOrders Dimension = "orders"
)

// Sentinel capacities for vehicles that state no ceiling in an active
// dimension. The engine needs finite integers, so "unlimited" is
// large-but-finite.
const (
	sentinelValue  = 100000
	sentinelUnits  = 1000
	sentinelOrders = 999
)

// ActiveDimensions returns the physical dimensions in which at least one
// order has strictly positive demand, plus the always-present orders
// dimension.
func ActiveDimensions(orders []model.Order) []Dimension {
	var dims []Dimension
	anyWeight, anyVolume, anyValue, anyUnits := false, false, false, false
	for i := range orders {
		o := &orders[i]
		anyWeight = anyWeight || o.Weight > 0
		anyVolume = anyVolume || o.Volume > 0
		anyValue = anyValue || (o.Value != nil && *o.Value > 0)
		anyUnits = anyUnits || (o.Units != nil && *o.Units > 0)
	}
	if anyWeight {
		dims = append(dims, DimWeight)
	}
	if anyVolume {
		dims = append(dims, DimVolume)
	}
	if anyValue {
		dims = append(dims, DimValue)
	}
	if anyUnits {
		dims = append(dims, DimUnits)
	}
	return append(dims, DimOrders)
}

// CapacityVector builds a vehicle's capacity along dims, positionally
// aligned. maxOrdersOverride (when > 0) caps the orders dimension; it is the
// balancing limit already reconciled with the vehicle's own max_orders.
func CapacityVector(v *model.Vehicle, dims []Dimension, maxOrdersOverride int) []int64 {
	cap := make([]int64, 0, len(dims))
	for _, d := range dims {
		switch d {
		case DimWeight:
			cap = append(cap, int64(math.Round(v.MaxWeight)))
		case DimVolume:
			cap = append(cap, int64(math.Round(v.MaxVolume)))
		case DimValue:
			if v.MaxValue != nil {
				cap = append(cap, int64(math.Round(*v.MaxValue)))
			} else {
				cap = append(cap, sentinelValue)
			}
		case DimUnits:
			if v.MaxUnits != nil {
				cap = append(cap, int64(*v.MaxUnits))
			} else {
				cap = append(cap, sentinelUnits)
			}
		case DimOrders:
			limit := maxOrdersOverride
			if limit <= 0 {
				if v.MaxOrders != nil && *v.MaxOrders > 0 {
					limit = *v.MaxOrders
				} else {
					limit = sentinelOrders
				}
			}
			cap = append(cap, int64(limit))
		}
	}
	return cap
}

// DeliveryVector builds an order's demand along dims, positionally aligned.
func DeliveryVector(o *model.Order, dims []Dimension) []int64 {
	dem := make([]int64, 0, len(dims))
	for _, d := range dims {
		switch d {
		case DimWeight:
			dem = append(dem, int64(math.Round(o.Weight)))
		case DimVolume:
			dem = append(dem, int64(math.Round(o.Volume)))
		case DimValue:
			if o.Value != nil {
				dem = append(dem, int64(math.Round(*o.Value)))
			} else {
				dem = append(dem, 0)
			}
		case DimUnits:
			if o.Units != nil {
				dem = append(dem, int64(*o.Units))
			} else {
				dem = append(dem, 0)
			}
		case DimOrders:
			dem = append(dem, 1)
		}
	}
	return dem
}

// BalancedOrderCap is the uniform per-vehicle stop cap used when balancing:
// ceil(orders/vehicles) + 1.
func BalancedOrderCap(orders, vehicles int) int {
	if vehicles <= 0 {
		return 0
	}
	return (orders+vehicles-1)/vehicles + 1
}

// EffectiveOrderCap reconciles the balancing cap with a vehicle's own
// max_orders, returning the tighter of the two. Zero means no cap from either
// source.
func EffectiveOrderCap(balancedCap int, v *model.Vehicle) int {
	eff := balancedCap
	if v.MaxOrders != nil && *v.MaxOrders > 0 && (eff == 0 || *v.MaxOrders < eff) {
		eff = *v.MaxOrders
	}
	return eff
}
