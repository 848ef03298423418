package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation lifecycle outcomes:
	// reserved, insufficient, released, consumed.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medicandle_reservations_total",
		Help: "Reservation operations by outcome.",
	}, []string{"outcome"})

	// StockMovementsTotal counts ledger entries by movement type.
	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medicandle_stock_movements_total",
		Help: "Stock ledger movements by type.",
	}, []string{"type"})
)
