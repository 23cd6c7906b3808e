package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository defines the dashboard's read-side data access
type Repository interface {
	ProductionSummary(ctx context.Context) (*ProductionSummary, error)
	AreaUtilization(ctx context.Context) ([]*AreaUtilizationRow, error)
	UpcomingActivities(ctx context.Context, from time.Time, days, limit int) ([]*UpcomingActivityRow, error)
	ActiveOrderProgress(ctx context.Context) ([]*OrderProgressRow, error)
}

// PostgresRepository implements Repository with raw SQL. The dashboard reads
// across domain tables and never writes, so it bypasses the ORM entirely.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a dashboard repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ProductionSummary(ctx context.Context) (*ProductionSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM production_orders WHERE status = 'planning')  AS planning_orders,
			(SELECT COUNT(*) FROM production_orders WHERE status = 'active')    AS active_orders,
			(SELECT COUNT(*) FROM production_orders WHERE status = 'completed') AS completed_orders,
			(SELECT COUNT(*) FROM production_orders WHERE status = 'cancelled') AS cancelled_orders,
			(SELECT COUNT(*) FROM batches WHERE status = 'active')              AS active_batches,
			(SELECT COALESCE(SUM(current_quantity), 0) FROM batches WHERE status = 'active') AS plants_in_production,
			(SELECT COUNT(*) FROM scheduled_activities WHERE status = 'overdue') AS overdue_activities,
			(SELECT COALESCE(AVG(mortality_rate), 0) FROM batches WHERE status = 'active') AS avg_mortality_rate
	`

	var summary ProductionSummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("failed to load production summary: %w", err)
	}
	summary.GeneratedAt = time.Now()
	return &summary, nil
}

func (r *PostgresRepository) AreaUtilization(ctx context.Context) ([]*AreaUtilizationRow, error) {
	query := `
		SELECT
			a.id   AS area_id,
			a.name AS name,
			a.area_type AS area_type,
			a.current_occupancy AS current_occupancy,
			a.max_capacity AS max_capacity,
			COUNT(b.id) AS active_batches,
			CASE
				WHEN a.max_capacity IS NULL OR a.max_capacity = 0 THEN NULL
				ELSE ROUND(100.0 * a.current_occupancy / a.max_capacity, 1)
			END AS utilization_pct
		FROM areas a
		LEFT JOIN batches b ON b.area_id = a.id AND b.status = 'active'
		WHERE a.is_active = true
		GROUP BY a.id, a.name, a.area_type, a.current_occupancy, a.max_capacity
		ORDER BY a.name
	`

	var rows []*AreaUtilizationRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load area utilization: %w", err)
	}
	return rows, nil
}

func (r *PostgresRepository) UpcomingActivities(ctx context.Context, from time.Time, days, limit int) ([]*UpcomingActivityRow, error) {
	query := `
		SELECT
			sa.id   AS activity_id,
			sa.name AS name,
			sa.activity_type AS activity_type,
			po.order_number AS order_number,
			op.name AS phase_name,
			sa.scheduled_date AS scheduled_date,
			sa.status AS status
		FROM scheduled_activities sa
		JOIN production_orders po ON po.id = sa.order_id
		JOIN order_phases op      ON op.id = sa.phase_id
		WHERE sa.status IN ('pending', 'overdue')
		  AND sa.scheduled_date < $1
		ORDER BY sa.scheduled_date, po.order_number
		LIMIT $2
	`

	horizon := from.AddDate(0, 0, days)
	var rows []*UpcomingActivityRow
	if err := r.db.SelectContext(ctx, &rows, query, horizon, limit); err != nil {
		return nil, fmt.Errorf("failed to load upcoming activities: %w", err)
	}
	return rows, nil
}

func (r *PostgresRepository) ActiveOrderProgress(ctx context.Context) ([]*OrderProgressRow, error) {
	query := `
		SELECT
			po.id AS order_id,
			po.order_number AS order_number,
			po.priority AS priority,
			po.completion_pct AS completion_pct,
			op.name AS current_phase,
			po.planned_end_date AS planned_end_date,
			po.actual_start_date AS actual_start_date,
			po.requested_quantity AS requested_quantity,
			COALESCE(SUM(b.current_quantity), 0) AS current_quantity
		FROM production_orders po
		LEFT JOIN order_phases op ON op.id = po.current_phase_id
		LEFT JOIN batches b ON b.order_id = po.id AND b.status = 'active'
		WHERE po.status = 'active'
		GROUP BY po.id, po.order_number, po.priority, po.completion_pct,
		         op.name, po.planned_end_date, po.actual_start_date, po.requested_quantity
		ORDER BY po.priority DESC, po.planned_end_date
	`

	var rows []*OrderProgressRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load order progress: %w", err)
	}
	return rows, nil
}
