package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// ProductionSummary aggregates the facility's current production state
type ProductionSummary struct {
	PlanningOrders     int     `db:"planning_orders" json:"planning_orders"`
	ActiveOrders       int     `db:"active_orders" json:"active_orders"`
	CompletedOrders    int     `db:"completed_orders" json:"completed_orders"`
	CancelledOrders    int     `db:"cancelled_orders" json:"cancelled_orders"`
	ActiveBatches      int     `db:"active_batches" json:"active_batches"`
	PlantsInProduction int     `db:"plants_in_production" json:"plants_in_production"`
	OverdueActivities  int     `db:"overdue_activities" json:"overdue_activities"`
	AvgMortalityRate   float64 `db:"avg_mortality_rate" json:"avg_mortality_rate"`

	GeneratedAt time.Time `db:"-" json:"generated_at"`
}

// AreaUtilizationRow is one area's occupancy against capacity
type AreaUtilizationRow struct {
	AreaID           uuid.UUID `db:"area_id" json:"area_id"`
	Name             string    `db:"name" json:"name"`
	AreaType         string    `db:"area_type" json:"area_type"`
	CurrentOccupancy int       `db:"current_occupancy" json:"current_occupancy"`
	MaxCapacity      *int      `db:"max_capacity" json:"max_capacity,omitempty"`
	ActiveBatches    int       `db:"active_batches" json:"active_batches"`
	UtilizationPct   *float64  `db:"utilization_pct" json:"utilization_pct,omitempty"`
}

// UpcomingActivityRow is one scheduled activity due within the horizon
type UpcomingActivityRow struct {
	ActivityID    uuid.UUID `db:"activity_id" json:"activity_id"`
	Name          string    `db:"name" json:"name"`
	ActivityType  string    `db:"activity_type" json:"activity_type"`
	OrderNumber   string    `db:"order_number" json:"order_number"`
	PhaseName     string    `db:"phase_name" json:"phase_name"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	Status        string    `db:"status" json:"status"`
}

// OrderProgressRow summarizes one active order for the dashboard
type OrderProgressRow struct {
	OrderID          uuid.UUID  `db:"order_id" json:"order_id"`
	OrderNumber      string     `db:"order_number" json:"order_number"`
	Priority         string     `db:"priority" json:"priority"`
	CompletionPct    int        `db:"completion_pct" json:"completion_pct"`
	CurrentPhase     *string    `db:"current_phase" json:"current_phase,omitempty"`
	PlannedEndDate   time.Time  `db:"planned_end_date" json:"planned_end_date"`
	ActualStartDate  *time.Time `db:"actual_start_date" json:"actual_start_date,omitempty"`
	RequestedQty     int        `db:"requested_quantity" json:"requested_quantity"`
	CurrentQty       int        `db:"current_quantity" json:"current_quantity"`
}
