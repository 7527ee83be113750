package userrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/dbschema"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// UserGormRepository implements participant.Repository using GORM
type UserGormRepository struct {
	db *transaction.Database
}

var _ participant.Repository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *transaction.Database) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) FindByID(ctx context.Context, id uint) (*participant.User, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("id = ?", id))
}

func (r *UserGormRepository) FindByExternalID(ctx context.Context, externalID int64) (*participant.User, error) {
	return r.findOne(ctx, r.db.GetTx(ctx).Where("external_id = ?", externalID))
}

func (r *UserGormRepository) FindUnboundByUsername(ctx context.Context, username string) (*participant.User, error) {
	username = participant.NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	return r.findOne(ctx, r.db.GetTx(ctx).Where("external_id IS NULL AND username = ?", username).Order("id"))
}

func (r *UserGormRepository) FindUnboundByName(ctx context.Context, name string) (*participant.User, error) {
	if name == "" {
		return nil, nil
	}
	return r.findOne(ctx, r.db.GetTx(ctx).Where("external_id IS NULL AND name = ?", name).Order("id"))
}

func (r *UserGormRepository) findOne(ctx context.Context, q *gorm.DB) (*participant.User, error) {
	var rows []dbschema.User
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find user", err, "5d2a7b14-6e3c-4f89-8a01-2c4e6b8d0f11")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

func (r *UserGormRepository) CreateIfAbsent(ctx context.Context, u *participant.User) (*participant.User, error) {
	row := dbschema.NewSchemaUser(u)
	q := r.db.GetTx(ctx)
	if u.ExternalID != nil {
		q = q.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true})
	}
	res := q.Create(row)
	if res.Error != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create user", res.Error, "5d2a7b14-6e3c-4f89-8a01-2c4e6b8d0f12")
	}
	if res.RowsAffected > 0 || u.ExternalID == nil {
		return row.ToDomain(), nil
	}
	return r.FindByExternalID(ctx, *u.ExternalID)
}

// RecordSighting merges one sighting in a single statement: blank names keep the
// stored value, channel ids are appended once and last_seen_at never moves back.
func (r *UserGormRepository) RecordSighting(ctx context.Context, id uint, s participant.Sighting) error {
	channelID := int64(s.ChannelID)
	updates := map[string]any{
		"name":         gorm.Expr("COALESCE(NULLIF(?, ''), name)", s.Name),
		"username":     gorm.Expr("COALESCE(NULLIF(?, ''), username)", participant.NormalizeUsername(s.Username)),
		"channel_ids":  gorm.Expr("CASE WHEN ? = 0 OR ? = ANY(channel_ids) THEN channel_ids ELSE array_append(channel_ids, ?::bigint) END", channelID, channelID, channelID),
		"last_seen_at": gorm.Expr("GREATEST(last_seen_at, ?)", s.At),
	}
	if err := r.db.GetTx(ctx).Model(&dbschema.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to record user sighting", err, "5d2a7b14-6e3c-4f89-8a01-2c4e6b8d0f13")
	}
	return nil
}

// BindExternalID is a no-op when the user is already bound or the id belongs to
// someone else.
func (r *UserGormRepository) BindExternalID(ctx context.Context, id uint, externalID int64) error {
	err := r.db.GetTx(ctx).Model(&dbschema.User{}).
		Where("id = ? AND external_id IS NULL", id).
		Update("external_id", externalID).Error
	if err == nil || errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to bind external id", err, "5d2a7b14-6e3c-4f89-8a01-2c4e6b8d0f14")
}
