package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/batches"
	"verdant/cultivation-portal/cultivation-backend/internal/catalog"
	"verdant/cultivation-portal/cultivation-backend/internal/domain"
	"verdant/cultivation-portal/cultivation-backend/internal/scheduling"
	"verdant/cultivation-portal/cultivation-backend/internal/templates"
	"verdant/cultivation-portal/cultivation-backend/pkg/workflows"
)

// fallbackPrefix is used for batch codes when an order has no cultivar.
const fallbackPrefix = "GEN"

// Service implements the production order lifecycle: instantiation from a
// template, activation into physical batches, phase progression and
// cancellation. Every mutating operation runs in a single transaction; events
// are published only after the transaction commits.
type Service struct {
	db               *gorm.DB
	templates        templates.Repository
	catalog          *catalog.Service
	orderSM          *workflows.StateMachine
	phaseSM          *workflows.StateMachine
	events           EventPublisher
	logger           *zap.Logger
	company          string
	defaultBatchSize int
}

// NewService creates an order service. defaultBatchSize is the last-resort
// batch size for templates that do not set their own.
func NewService(db *gorm.DB, templateRepo templates.Repository, catalogSvc *catalog.Service, events EventPublisher, logger *zap.Logger, companyCode string, defaultBatchSize int) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		db:               db,
		templates:        templateRepo,
		catalog:          catalogSvc,
		orderSM:          workflows.NewOrderStateMachine(),
		phaseSM:          workflows.NewPhaseStateMachine(),
		events:           events,
		logger:           logger,
		company:          companyCode,
		defaultBatchSize: defaultBatchSize,
	}
}

// Create instantiates a production order from a template: sequential order
// number, one dated phase per template phase, and the full expansion of every
// activity timing rule into scheduled activities. All rows land in one
// transaction; a failed expansion creates nothing.
func (s *Service) Create(ctx context.Context, createdBy uuid.UUID, req *CreateOrderRequest) (*ProductionOrder, error) {
	template, err := s.templates.Get(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if template.Status != templates.StatusActive {
		return nil, fmt.Errorf("template %s is %s: %w", template.ID, template.Status, domain.ErrInvalidStateTransition)
	}
	if len(template.Phases) == 0 {
		return nil, fmt.Errorf("template %s has no phases: %w", template.ID, domain.ErrInvariantViolation)
	}

	cultivarID := req.CultivarID
	if cultivarID == nil {
		cultivarID = template.DefaultCultivarID
	}
	if cultivarID != nil {
		if _, err := s.catalog.CheckCompatibility(ctx, *cultivarID, template.CropTypeID); err != nil {
			return nil, err
		}
	}

	// Batch size resolution: explicit request, then template default, then
	// the configured fallback.
	batchSize := template.DefaultBatchSize
	if batchSize < 1 {
		batchSize = s.defaultBatchSize
	}
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size %d: %w", batchSize, domain.ErrInvariantViolation)
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	var order *ProductionOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		startDate := req.StartDate
		number, err := nextOrderNumber(tx, s.company, startDate.Year())
		if err != nil {
			return err
		}

		order = &ProductionOrder{
			ID:                uuid.New(),
			OrderNumber:       number,
			CompanyCode:       s.company,
			TemplateID:        template.ID,
			CropTypeID:        template.CropTypeID,
			CultivarID:        cultivarID,
			RequestedQuantity: req.RequestedQuantity,
			BatchSize:         batchSize,
			TracksIndividuals: template.TracksIndividuals,
			Status:            OrderStatusPlanning,
			Priority:          priority,
			DefaultAreaID:     req.DefaultAreaID,
			PlannedStartDate:  startDate,
			CreatedBy:         createdBy,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}

		// Phases run back to back: each phase starts the day the previous
		// one ends.
		cursor := startDate
		for _, tp := range template.Phases {
			phaseStart := cursor
			phaseEnd := phaseStart.AddDate(0, 0, tp.DurationDays)
			cursor = phaseEnd

			phase := OrderPhase{
				ID:               uuid.New(),
				OrderID:          order.ID,
				TemplatePhaseID:  tp.ID,
				Name:             tp.Name,
				PhaseOrder:       tp.PhaseOrder,
				TargetAreaType:   tp.TargetAreaType,
				Status:           PhaseStatusPending,
				PlannedStartDate: phaseStart,
				PlannedEndDate:   phaseEnd,
				CreatedAt:        time.Now(),
				UpdatedAt:        time.Now(),
			}
			order.Phases = append(order.Phases, phase)

			for _, ta := range tp.Activities {
				scheduled, err := s.expandActivity(&ta, &phase)
				if err != nil {
					return fmt.Errorf("activity %q in phase %q: %w", ta.Name, tp.Name, err)
				}
				order.Activities = append(order.Activities, scheduled...)
			}
		}
		order.PlannedEndDate = cursor

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("template_id", template.ID.String()),
		zap.Int("requested_quantity", order.RequestedQuantity),
		zap.Int("scheduled_activities", len(order.Activities)))
	return order, nil
}

// expandActivity turns one template activity into its dated occurrences for a
// phase window.
func (s *Service) expandActivity(ta *templates.TemplateActivity, phase *OrderPhase) ([]ScheduledActivity, error) {
	var rule scheduling.TimingRule
	if len(ta.TimingRule) > 0 {
		var err error
		rule, err = scheduling.ParseRule([]byte(ta.TimingRule))
		if err != nil {
			return nil, err
		}
	}

	dates, err := scheduling.Schedule(rule, phase.PlannedStartDate, phase.PlannedEndDate)
	if err != nil {
		return nil, err
	}

	recurring := len(dates) > 1
	var recurringEnd *time.Time
	if recurring {
		last := dates[len(dates)-1]
		recurringEnd = &last
	}

	result := make([]ScheduledActivity, 0, len(dates))
	for _, date := range dates {
		result = append(result, ScheduledActivity{
			ID:                     uuid.New(),
			OrderID:                phase.OrderID,
			PhaseID:                phase.ID,
			TemplateActivityID:     ta.ID,
			Name:                   ta.Name,
			ActivityType:           ta.ActivityType,
			ScheduledDate:          date,
			Status:                 ActivityStatusPending,
			IsRecurring:            recurring,
			RecurringEndDate:       recurringEnd,
			IsQualityCheck:         ta.IsQualityCheck,
			QualityCheckTemplateID: ta.QualityCheckTemplateID,
			CreatedAt:              time.Now(),
			UpdatedAt:              time.Now(),
		})
	}
	return result, nil
}

// Activate turns a planned order into physical inventory: the requested
// quantity is partitioned into batches of at most the order's batch size, each
// batch claims occupancy in the target area, pending activities are bound to
// the first batch and the first phase starts. The state machine check and the
// guarded status update run first so concurrent activations of the same order
// fail before creating anything.
func (s *Service) Activate(ctx context.Context, orderID, approvedBy uuid.UUID, req *ActivateOrderRequest) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !s.orderSM.CanTransition(order.Status, OrderStatusActive) {
			return fmt.Errorf("order %s is %s: %w", order.OrderNumber, order.Status, domain.ErrInvalidStateTransition)
		}

		result := tx.Model(&ProductionOrder{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Updates(map[string]interface{}{
				"status":     OrderStatusActive,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to activate order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("order %s changed concurrently: %w", order.OrderNumber, domain.ErrInvalidStateTransition)
		}

		areaID := order.DefaultAreaID
		if req != nil && req.TargetAreaID != nil {
			areaID = req.TargetAreaID
		}
		if areaID == nil {
			return fmt.Errorf("order %s has no target area: %w", order.OrderNumber, domain.ErrMissingTargetArea)
		}

		prefix := fallbackPrefix
		if order.CultivarID != nil {
			cultivar, err := s.catalog.GetCultivar(ctx, *order.CultivarID)
			if err != nil {
				return err
			}
			prefix = cultivar.CodePrefix
		}

		firstPhase := &order.Phases[0]
		now := time.Now()

		var firstBatch *batches.Batch
		for _, quantity := range partitionQuantity(order.RequestedQuantity, order.BatchSize) {
			batch, err := batches.Materialize(tx, batches.MaterializeParams{
				OrderID:           &order.ID,
				CropTypeID:        order.CropTypeID,
				CultivarID:        order.CultivarID,
				CultivarPrefix:    prefix,
				AreaID:            *areaID,
				PhaseName:         firstPhase.Name,
				Quantity:          quantity,
				TracksIndividuals: order.TracksIndividuals,
				CreatedBy:         approvedBy,
				Date:              now,
			})
			if err != nil {
				return err
			}
			if firstBatch == nil {
				firstBatch = batch
			}
		}

		if err := tx.Model(&ScheduledActivity{}).
			Where("order_id = ? AND status = ?", order.ID, ActivityStatusPending).
			Updates(map[string]interface{}{
				"batch_id":   firstBatch.ID,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to bind activities to batch: %w", err)
		}

		if err := tx.Model(&OrderPhase{}).Where("id = ?", firstPhase.ID).
			Updates(map[string]interface{}{
				"status":            PhaseStatusInProgress,
				"actual_start_date": now,
				"updated_at":        now,
			}).Error; err != nil {
			return fmt.Errorf("failed to start first phase: %w", err)
		}

		if err := tx.Model(&ProductionOrder{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"approved_by":       approvedBy,
				"actual_start_date": now,
				"current_phase_id":  firstPhase.ID,
				"default_area_id":   *areaID,
				"updated_at":        now,
			}).Error; err != nil {
			return fmt.Errorf("failed to stamp activation: %w", err)
		}

		order, err = s.getOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.OrderActivated(order.ID, order.OrderNumber)
	s.logger.Info("Order activated",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("approved_by", approvedBy.String()))
	return order, nil
}

// partitionQuantity splits a requested quantity into batches of at most
// batchSize, the last batch carrying the remainder.
func partitionQuantity(quantity, batchSize int) []int {
	count := (quantity + batchSize - 1) / batchSize
	result := make([]int, 0, count)
	remaining := quantity
	for remaining > 0 {
		size := batchSize
		if remaining < size {
			size = remaining
		}
		result = append(result, size)
		remaining -= size
	}
	return result
}

// CompletePhase completes the order's in-progress phase, recomputes the
// completion percentage and either starts the next phase or completes the
// order. Phases complete strictly in order: only the in-progress phase can be
// completed.
func (s *Service) CompletePhase(ctx context.Context, orderID, phaseID uuid.UUID) (*ProductionOrder, error) {
	var (
		order          *ProductionOrder
		completedPhase string
		orderDone      bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrder(tx, orderID)
		if err != nil {
			return err
		}
		// Phase completion is what moves an order toward completed, so the
		// order must be in a status from which completed is reachable.
		if !s.orderSM.CanTransition(order.Status, OrderStatusCompleted) {
			return fmt.Errorf("order %s is %s: %w", order.OrderNumber, order.Status, domain.ErrInvalidStateTransition)
		}

		var phase *OrderPhase
		for i := range order.Phases {
			if order.Phases[i].ID == phaseID {
				phase = &order.Phases[i]
				break
			}
		}
		if phase == nil {
			return fmt.Errorf("phase %s in order %s: %w", phaseID, order.OrderNumber, domain.ErrNotFound)
		}
		if !s.phaseSM.CanTransition(phase.Status, PhaseStatusCompleted) {
			return fmt.Errorf("phase %q is %s: %w", phase.Name, phase.Status, domain.ErrInvalidPhaseState)
		}
		completedPhase = phase.Name

		now := time.Now()
		result := tx.Model(&OrderPhase{}).
			Where("id = ? AND status = ?", phase.ID, PhaseStatusInProgress).
			Updates(map[string]interface{}{
				"status":          PhaseStatusCompleted,
				"actual_end_date": now,
				"updated_at":      now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete phase: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("phase %q changed concurrently: %w", phase.Name, domain.ErrInvalidPhaseState)
		}

		completed := 0
		var next *OrderPhase
		for i := range order.Phases {
			p := &order.Phases[i]
			if p.ID == phase.ID || p.Status == PhaseStatusCompleted {
				completed++
				continue
			}
			if p.PhaseOrder > phase.PhaseOrder && (next == nil || p.PhaseOrder < next.PhaseOrder) {
				next = p
			}
		}
		pct := int(math.Round(100 * float64(completed) / float64(len(order.Phases))))

		updates := map[string]interface{}{
			"completion_pct": pct,
			"updated_at":     now,
		}
		if next != nil {
			if !s.phaseSM.CanTransition(next.Status, PhaseStatusInProgress) {
				return fmt.Errorf("phase %q is %s: %w", next.Name, next.Status, domain.ErrInvalidPhaseState)
			}
			if err := tx.Model(&OrderPhase{}).Where("id = ?", next.ID).
				Updates(map[string]interface{}{
					"status":            PhaseStatusInProgress,
					"actual_start_date": now,
					"updated_at":        now,
				}).Error; err != nil {
				return fmt.Errorf("failed to start phase %q: %w", next.Name, err)
			}
			updates["current_phase_id"] = next.ID
		} else {
			orderDone = true
			updates["status"] = OrderStatusCompleted
			updates["completion_pct"] = 100
			updates["current_phase_id"] = nil
			updates["actual_completion_date"] = now
		}

		if err := tx.Model(&ProductionOrder{}).Where("id = ?", order.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order progress: %w", err)
		}

		order, err = s.getOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PhaseCompleted(order.ID, order.OrderNumber, completedPhase)
	if orderDone {
		s.events.OrderCompleted(order.ID, order.OrderNumber)
	}
	s.logger.Info("Phase completed",
		zap.String("order_id", order.ID.String()),
		zap.String("phase", completedPhase),
		zap.Int("completion_pct", order.CompletionPct))
	return order, nil
}

// Cancel cancels a planning or active order, cancels its pending activities
// and optionally archives its batches, releasing their occupancy.
func (s *Service) Cancel(ctx context.Context, orderID, performedBy uuid.UUID, req *CancelOrderRequest) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !s.orderSM.CanTransition(existing.Status, OrderStatusCancelled) {
			return fmt.Errorf("order %s is %s: %w", existing.OrderNumber, existing.Status, domain.ErrInvalidStateTransition)
		}

		now := time.Now()
		result := tx.Model(&ProductionOrder{}).
			Where("id = ? AND status = ?", orderID, existing.Status).
			Updates(map[string]interface{}{
				"status":        OrderStatusCancelled,
				"cancel_reason": req.Reason,
				"updated_at":    now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("order %s changed concurrently: %w", existing.OrderNumber, domain.ErrInvalidStateTransition)
		}

		if err := tx.Model(&ScheduledActivity{}).
			Where("order_id = ? AND status IN ?", orderID, []string{ActivityStatusPending, ActivityStatusOverdue}).
			Updates(map[string]interface{}{
				"status":     ActivityStatusCancelled,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to cancel activities: %w", err)
		}

		if req.ArchiveBatches {
			if _, err := batches.ArchiveForOrder(tx, orderID); err != nil {
				return err
			}
		}

		order, err = s.getOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.OrderCancelled(order.ID, order.OrderNumber, req.Reason)
	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("reason", req.Reason),
		zap.String("performed_by", performedBy.String()))
	return order, nil
}

// CompleteActivity marks one scheduled activity completed. Only pending and
// overdue activities can be completed; the guard serializes concurrent
// completions of the same activity.
func (s *Service) CompleteActivity(ctx context.Context, activityID, completedBy uuid.UUID, req *CompleteActivityRequest) (*ScheduledActivity, error) {
	var activity *ScheduledActivity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"status":       ActivityStatusCompleted,
			"completed_by": completedBy,
			"completed_at": now,
			"updated_at":   now,
		}
		if req != nil && req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		result := tx.Model(&ScheduledActivity{}).
			Where("id = ? AND status IN ?", activityID, []string{ActivityStatusPending, ActivityStatusOverdue}).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to complete activity: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var existing ScheduledActivity
			err := tx.First(&existing, "id = ?", activityID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
				}
				return fmt.Errorf("failed to load activity: %w", err)
			}
			return fmt.Errorf("activity %q is %s: %w", existing.Name, existing.Status, domain.ErrInvalidStateTransition)
		}

		activity = &ScheduledActivity{}
		return tx.First(activity, "id = ?", activityID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Activity completed",
		zap.String("activity_id", activityID.String()),
		zap.String("completed_by", completedBy.String()))
	return activity, nil
}

// FlagOverdueActivities marks pending activities scheduled before today as
// overdue, up to limit rows per call. Used by the periodic worker.
func (s *Service) FlagOverdueActivities(ctx context.Context, asOf time.Time, limit int) (int, error) {
	y, m, d := asOf.UTC().Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&ScheduledActivity{}).
		Where("status = ? AND scheduled_date < ?", ActivityStatusPending, startOfDay).
		Order("scheduled_date").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to scan for overdue activities: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Model(&ScheduledActivity{}).
		Where("id IN ? AND status = ?", ids, ActivityStatusPending).
		Updates(map[string]interface{}{
			"status":     ActivityStatusOverdue,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to flag overdue activities: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("Overdue activities flagged", zap.Int64("count", result.RowsAffected))
	}
	return int(result.RowsAffected), nil
}

// Get retrieves an order with its phases and activities
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ProductionOrder, error) {
	return s.getOrder(s.db.WithContext(ctx), id)
}

// ListActivities lists an order's scheduled activities, optionally filtered
// by status.
func (s *Service) ListActivities(ctx context.Context, orderID uuid.UUID, status *string) ([]*ScheduledActivity, error) {
	query := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("scheduled_date, name")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var result []*ScheduledActivity
	if err := query.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return result, nil
}

// List pages orders newest first
func (s *Service) List(ctx context.Context, filters *OrderFilters) (*OrderListResponse, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&ProductionOrder{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}
	if filters.TemplateID != nil {
		query = query.Where("template_id = ?", *filters.TemplateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var result []*ProductionOrder
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &OrderListResponse{
		Orders:     result,
		TotalCount: int(total),
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

func (s *Service) getOrder(tx *gorm.DB, id uuid.UUID) (*ProductionOrder, error) {
	var order ProductionOrder
	err := tx.
		Preload("Phases", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase_order ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}
