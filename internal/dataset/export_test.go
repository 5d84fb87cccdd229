package dataset

import "github.com/skitourlive/skitourlive/internal/route"

func (r *PostgresRepository) AcceptRoute(rt route.Route, aspect, difficulty string) (route.Route, bool) {
	return r.acceptRoute(rt, aspect, difficulty)
}
