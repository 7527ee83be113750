package commitmentrepo

import (
	"context"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/dbschema"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// CommitmentGormRepository implements commitment.Repository using GORM
type CommitmentGormRepository struct {
	db *transaction.Database
}

var _ commitment.Repository = (*CommitmentGormRepository)(nil)

func NewCommitmentGormRepository(db *transaction.Database) *CommitmentGormRepository {
	return &CommitmentGormRepository{db: db}
}

func (r *CommitmentGormRepository) Create(ctx context.Context, c *commitment.Commitment) error {
	row := dbschema.NewSchemaCommitment(c)
	if err := r.db.GetTx(ctx).Create(row).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create commitment", err, "c7e2a9b4-3d5f-4a18-86c0-1b9d7e5f3a41")
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	return nil
}

func (r *CommitmentGormRepository) ListByChannel(ctx context.Context, channelID uint) ([]*commitment.Commitment, error) {
	var rows []dbschema.Commitment
	if err := r.db.GetTx(ctx).Where("channel_id = ?", channelID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to list commitments", err, "c7e2a9b4-3d5f-4a18-86c0-1b9d7e5f3a42")
	}
	out := make([]*commitment.Commitment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (r *CommitmentGormRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.GetTx(ctx).Model(&dbschema.Commitment{}).
		Where("status = ? AND due_date < ?", string(commitment.StatusPending), now).
		Count(&n).Error
	if err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to count overdue commitments", err, "c7e2a9b4-3d5f-4a18-86c0-1b9d7e5f3a43")
	}
	return n, nil
}
