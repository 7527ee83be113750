package caserepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/dbschema"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// ticketSequence hands out ticket numbers; numbers burned by rolled back inserts
// leave gaps.
const ticketSequence = "helpdesk.case_ticket_number_seq"

var openStatuses = []string{
	string(ticket.StatusDetected),
	string(ticket.StatusInProgress),
	string(ticket.StatusWaiting),
}

// CaseGormRepository implements ticket.Repository using GORM
type CaseGormRepository struct {
	db *transaction.Database
}

var _ ticket.Repository = (*CaseGormRepository)(nil)

func NewCaseGormRepository(db *transaction.Database) *CaseGormRepository {
	return &CaseGormRepository{db: db}
}

func (r *CaseGormRepository) Create(ctx context.Context, c *ticket.Case, activity *ticket.Activity) error {
	row := dbschema.NewSchemaCase(c)
	err := r.db.InTx(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)
		if err := tx.Raw("SELECT nextval(?)", ticketSequence).Scan(&row.TicketNumber).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to allocate ticket number", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a31")
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ticket.ErrDuplicateCase
			}
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create case", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a32")
		}
		if activity == nil {
			return nil
		}
		activity.CaseID = row.ID
		activity.Details.TicketNumber = row.TicketNumber
		return r.appendActivity(ctx, activity)
	})
	if err != nil {
		return err
	}
	c.ID = row.ID
	c.TicketNumber = row.TicketNumber
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *CaseGormRepository) appendActivity(ctx context.Context, activity *ticket.Activity) error {
	row, err := dbschema.NewSchemaCaseActivity(activity)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to encode activity details", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a33")
	}
	if err := r.db.GetTx(ctx).Create(row).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to append case activity", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a34")
	}
	activity.ID = row.ID
	activity.CreatedAt = row.CreatedAt
	return nil
}

func (r *CaseGormRepository) FindByID(ctx context.Context, id uint) (*ticket.Case, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("id = ?", id))
}

func (r *CaseGormRepository) FindBySourceMessageID(ctx context.Context, messageID uint) (*ticket.Case, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("source_message_id = ?", messageID))
}

func (r *CaseGormRepository) findOne(ctx context.Context, q *gorm.DB) (*ticket.Case, error) {
	var rows []dbschema.Case
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find case", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a35")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

func (r *CaseGormRepository) ListOpenByChannel(ctx context.Context, channelID uint) ([]*ticket.Case, error) {
	return r.list(ctx, r.db.GetTx(ctx).Where("channel_id = ? AND status IN ?", channelID, openStatuses))
}

func (r *CaseGormRepository) ListByChannel(ctx context.Context, channelID uint) ([]*ticket.Case, error) {
	return r.list(ctx, r.db.GetTx(ctx).Where("channel_id = ?", channelID))
}

func (r *CaseGormRepository) list(ctx context.Context, q *gorm.DB) ([]*ticket.Case, error) {
	var rows []dbschema.Case
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to list cases", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a36")
	}
	cases := make([]*ticket.Case, 0, len(rows))
	for i := range rows {
		cases = append(cases, rows[i].ToDomain())
	}
	return cases, nil
}

// SaveTransition writes the mutable case columns and the activity together. A case
// that no longer exists is skipped.
func (r *CaseGormRepository) SaveTransition(ctx context.Context, c *ticket.Case, activity *ticket.Activity) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		res := r.db.GetTx(ctx).Model(&dbschema.Case{}).Where("id = ?", c.ID).Updates(map[string]any{
			"title":             c.Title,
			"description":       c.Description,
			"category":          c.Category,
			"status":            string(c.Status),
			"priority":          string(c.Priority),
			"assigned_to":       c.AssignedTo,
			"first_response_at": c.FirstResponseAt,
			"resolved_at":       c.ResolvedAt,
			"updated_by":        c.UpdatedBy,
			"updated_at":        c.UpdatedAt,
		})
		if res.Error != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update case", res.Error, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a37")
		}
		if res.RowsAffected == 0 || activity == nil {
			return nil
		}
		activity.CaseID = c.ID
		return r.appendActivity(ctx, activity)
	})
}

func (r *CaseGormRepository) ListActivities(ctx context.Context, caseID uint) ([]*ticket.Activity, error) {
	var rows []dbschema.CaseActivity
	if err := r.db.GetTx(ctx).Where("case_id = ?", caseID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to list case activities", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a38")
	}
	activities := make([]*ticket.Activity, 0, len(rows))
	for i := range rows {
		activities = append(activities, rows[i].ToDomain())
	}
	return activities, nil
}

func (r *CaseGormRepository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetTx(ctx).Model(&dbschema.Case{}).Where("status IN ?", openStatuses).Count(&n).Error; err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to count open cases", err, "3a9d5f72-0c1e-4b68-a7d4-9e2f1b3c5a39")
	}
	return n, nil
}
