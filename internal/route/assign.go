package route

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/route-cli/internal/model"
)

// AssignVisitOrder maps a solved path over [origin, stops...] back onto the
// stops. The origin (index 0) is dropped and the returned records, in visit
// order, carry VisitOrder 0..N-1. The input slice is not modified.
func AssignVisitOrder(stops []model.DeliveryRecord, path []int) ([]model.DeliveryRecord, error) {
	if err := Validate(path, len(stops)+1, 0); err != nil {
		return nil, err
	}

	out := make([]model.DeliveryRecord, 0, len(stops))
	for order, idx := range path[1:] {
		if idx < 1 || idx > len(stops) {
			return nil, eris.Errorf("route: stop index %d out of range", idx)
		}
		out = append(out, stops[idx-1].WithVisitOrder(order))
	}
	return out, nil
}
