package messagerepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/dbschema"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// MessageGormRepository implements message.Repository using GORM
type MessageGormRepository struct {
	db *transaction.Database
}

var _ message.Repository = (*MessageGormRepository)(nil)

func NewMessageGormRepository(db *transaction.Database) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

// Insert uses ON CONFLICT DO NOTHING on (channel_id, external_message_id), so a
// redelivered update never produces a second row.
func (r *MessageGormRepository) Insert(ctx context.Context, m *message.Message) (bool, error) {
	row, err := dbschema.NewSchemaMessage(m)
	if err != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to map message", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b21")
	}
	res := r.db.GetTx(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "external_message_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to insert message", res.Error, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b22")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	m.ID = row.ID
	m.CreatedAt = row.CreatedAt
	return true, nil
}

func (r *MessageGormRepository) FindByID(ctx context.Context, id uint) (*message.Message, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("id = ?", id))
}

func (r *MessageGormRepository) FindByExternalID(ctx context.Context, channelID uint, externalID int64) (*message.Message, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("channel_id = ? AND external_message_id = ?", channelID, externalID))
}

func (r *MessageGormRepository) findOne(ctx context.Context, q *gorm.DB) (*message.Message, error) {
	var rows []dbschema.Message
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find message", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b23")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

func (r *MessageGormRepository) MarkClientMessagesRead(ctx context.Context, channelID uint) error {
	err := r.db.GetTx(ctx).Model(&dbschema.Message{}).
		Where("channel_id = ? AND is_from_client AND NOT is_read", channelID).
		Update("is_read", true).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to mark messages read", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b24")
	}
	return nil
}

func (r *MessageGormRepository) UpdateReactions(ctx context.Context, id uint, reactions message.Reactions) error {
	raw, err := dbschema.MarshalReactions(reactions)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to encode reactions", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b25")
	}
	if err := r.db.GetTx(ctx).Model(&dbschema.Message{}).Where("id = ?", id).Update("reactions", raw).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to update reactions", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b26")
	}
	return nil
}

func (r *MessageGormRepository) SetCase(ctx context.Context, id uint, caseID uint) error {
	if err := r.db.GetTx(ctx).Model(&dbschema.Message{}).Where("id = ?", id).Update("case_id", caseID).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to link message to case", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b27")
	}
	return nil
}

// SetAnalysis only writes the fields the analysis carries.
func (r *MessageGormRepository) SetAnalysis(ctx context.Context, id uint, analysis message.Analysis) error {
	updates := map[string]any{}
	if analysis.Urgency != nil {
		updates["urgency"] = *analysis.Urgency
	}
	if analysis.Sentiment != "" {
		updates["sentiment"] = analysis.Sentiment
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.GetTx(ctx).Model(&dbschema.Message{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to store message analysis", err, "8e41c2d7-1a5b-4c36-b9f0-6d2e8a4c7b28")
	}
	return nil
}
