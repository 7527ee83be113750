package channelrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/dbschema"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// ChannelGormRepository implements channel.Repository using GORM
type ChannelGormRepository struct {
	db *transaction.Database
}

var _ channel.Repository = (*ChannelGormRepository)(nil)

func NewChannelGormRepository(db *transaction.Database) *ChannelGormRepository {
	return &ChannelGormRepository{db: db}
}

func (r *ChannelGormRepository) FindByID(ctx context.Context, id uint) (*channel.Channel, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *ChannelGormRepository) FindByExternalID(ctx context.Context, externalChatID int64) (*channel.Channel, error) {
	return r.findOne(ctx, "external_chat_id = ?", externalChatID)
}

func (r *ChannelGormRepository) findOne(ctx context.Context, query string, arg any) (*channel.Channel, error) {
	var rows []dbschema.Channel
	if err := r.db.GetTx(ctx).Where(query, arg).Limit(1).Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find channel", err, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b01")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// CreateIfAbsent relies on the unique external_chat_id; a losing writer reads the
// winner's row.
func (r *ChannelGormRepository) CreateIfAbsent(ctx context.Context, ch *channel.Channel) (*channel.Channel, bool, error) {
	row := dbschema.NewSchemaChannel(ch)
	res := r.db.GetTx(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_chat_id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create channel", res.Error, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b02")
	}
	if res.RowsAffected > 0 {
		return row.ToDomain(), true, nil
	}

	stored, err := r.FindByExternalID(ctx, ch.ExternalChatID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "channel vanished after conflicting insert", nil, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b03")
	}
	return stored, false, nil
}

func (r *ChannelGormRepository) RecordClientActivity(ctx context.Context, id uint, a channel.ClientActivity) error {
	updates := map[string]any{
		"unread_count":           gorm.Expr("unread_count + 1"),
		"awaiting_reply":         true,
		"is_active":              true,
		"last_client_message_at": a.At,
		"last_message_at":        a.At,
		"last_sender_name":       a.SenderName,
		"last_message_preview":   a.Preview,
		"updated_at":             a.At,
	}
	if a.ResponseSampleMs != nil {
		// Right-hand sides see the pre-update row, so both columns use the old count.
		updates["client_avg_response_ms"] = gorm.Expr("(client_avg_response_ms * client_response_count + ?) / (client_response_count + 1)", *a.ResponseSampleMs)
		updates["client_response_count"] = gorm.Expr("client_response_count + 1")
	}
	if err := r.db.GetTx(ctx).Model(&dbschema.Channel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to record client activity", err, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b04")
	}
	return nil
}

func (r *ChannelGormRepository) RecordTeamActivity(ctx context.Context, id uint, a channel.TeamActivity) error {
	updates := map[string]any{
		"awaiting_reply":        false,
		"unread_count":          0,
		"last_agent_message_at": a.At,
		"last_team_message_at":  a.At,
		"is_active":             true,
		"last_message_at":       a.At,
		"last_sender_name":      a.SenderName,
		"last_message_preview":  a.Preview,
		"updated_at":            a.At,
	}
	if err := r.db.GetTx(ctx).Model(&dbschema.Channel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to record team activity", err, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b05")
	}
	return nil
}

func (r *ChannelGormRepository) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	updates := map[string]any{"is_active": active, "updated_at": at}
	if err := r.db.GetTx(ctx).Model(&dbschema.Channel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to set channel activity", err, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b07")
	}
	return nil
}

func (r *ChannelGormRepository) SetPhotoURL(ctx context.Context, id uint, url string) error {
	if err := r.db.GetTx(ctx).Model(&dbschema.Channel{}).Where("id = ?", id).Update("photo_url", url).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to set channel photo", err, "0b6f1e23-8c4d-4a57-9e12-3f5a7c9d1b06")
	}
	return nil
}
