package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/asset"
	"storyquestAPI/internal/database"
)

// assetKind describes one of the two story asset tables. Characters and
// settings share a layout and differ only in the name of the JSON column.
type assetKind struct {
	name       string
	table      string
	attrColumn string
	keys       []string
}

var (
	characterKind = assetKind{name: "character", table: "characters", attrColumn: "traits", keys: asset.CharacterTraitKeys}
	settingKind   = assetKind{name: "setting", table: "settings", attrColumn: "attributes", keys: asset.SettingAttributeKeys}
)

type assetRow struct {
	ID          uuid.UUID
	StoryID     uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	Attrs       map[string]string
	ImagePath   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type assetInput struct {
	Name        *string
	Description *string
	Attrs       map[string]string
	ImagePath   *string
}

func (k assetKind) columns() string {
	return `id, story_id, user_id, name, description, ` + k.attrColumn + `, image_path, created_at, updated_at`
}

func scanAsset(row pgx.Row) (*assetRow, error) {
	a := &assetRow{}
	if err := row.Scan(&a.ID, &a.StoryID, &a.UserID, &a.Name, &a.Description, &a.Attrs, &a.ImagePath, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *assetRow) character() *asset.Character {
	return &asset.Character{
		ID: a.ID, StoryID: a.StoryID, UserID: a.UserID, Name: a.Name, Description: a.Description,
		Traits: a.Attrs, ImagePath: a.ImagePath, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (a *assetRow) setting() *asset.Setting {
	return &asset.Setting{
		ID: a.ID, StoryID: a.StoryID, UserID: a.UserID, Name: a.Name, Description: a.Description,
		Attributes: a.Attrs, ImagePath: a.ImagePath, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

type AssetService struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewAssetService(db *pgxpool.Pool, logger *zap.Logger) *AssetService {
	return &AssetService{
		db:     db,
		logger: logger.Named("AssetService"),
		now:    time.Now,
	}
}

func (s *AssetService) create(ctx context.Context, kind assetKind, callerID, storyID uuid.UUID, in assetInput) (*assetRow, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("%s name is required", kind.name)
	}
	name := strings.TrimSpace(*in.Name)

	var created *assetRow
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, false); err != nil {
			return err
		}

		now := s.now()
		query := fmt.Sprintf(`
			INSERT INTO %s (story_id, user_id, name, description, %s, image_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING %s`, kind.table, kind.attrColumn, kind.columns())

		row, err := scanAsset(tx.QueryRow(ctx, query, storyID, callerID, name,
			deref(in.Description), asset.Normalize(kind.keys, nil, in.Attrs), deref(in.ImagePath), now))
		if err != nil {
			return apperr.Persistence("create "+kind.name, err)
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Asset created", zap.String("kind", kind.name), zap.String("id", created.ID.String()), zap.String("storyID", storyID.String()))
	return created, nil
}

func (s *AssetService) update(ctx context.Context, kind assetKind, callerID, assetID uuid.UUID, in assetInput) (*assetRow, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("%s name is required", kind.name)
		}
		in.Name = &name
	}

	var updated *assetRow
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := scanAsset(tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, kind.columns(), kind.table), assetID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.ErrAssetNotFound
			}
			return apperr.Persistence("load "+kind.name, err)
		}
		if current.UserID != callerID {
			return apperr.ErrPermissionDenied
		}

		attrs := current.Attrs
		if in.Attrs != nil {
			attrs = asset.Normalize(kind.keys, current.Attrs, in.Attrs)
		}
		query := fmt.Sprintf(`
			UPDATE %s SET
				name        = COALESCE($2, name),
				description = COALESCE($3, description),
				%s          = $4,
				image_path  = COALESCE($5, image_path),
				updated_at  = $6
			WHERE id = $1
			RETURNING %s`, kind.table, kind.attrColumn, kind.columns())

		updated, err = scanAsset(tx.QueryRow(ctx, query, assetID, in.Name, in.Description, attrs, in.ImagePath, s.now()))
		return apperr.Persistence("update "+kind.name, err)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AssetService) listByStory(ctx context.Context, kind assetKind, callerID, storyID uuid.UUID) ([]*assetRow, error) {
	if _, err := loadVisibleStory(ctx, s.db, callerID, storyID); err != nil {
		return nil, err
	}
	return s.list(ctx, kind, `story_id = $1`, storyID)
}

func (s *AssetService) listByOwner(ctx context.Context, kind assetKind, userID uuid.UUID) ([]*assetRow, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	return s.list(ctx, kind, `user_id = $1`, userID)
}

func (s *AssetService) list(ctx context.Context, kind assetKind, where string, arg uuid.UUID) ([]*assetRow, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at, id`, kind.columns(), kind.table, where), arg)
	if err != nil {
		return nil, apperr.Persistence("list "+kind.table, err)
	}
	defer rows.Close()

	var out []*assetRow
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, apperr.Persistence("scan "+kind.name, err)
		}
		out = append(out, a)
	}
	return out, apperr.Persistence("list "+kind.table, rows.Err())
}

func (s *AssetService) CreateCharacter(ctx context.Context, callerID, storyID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error) {
	row, err := s.create(ctx, characterKind, callerID, storyID, assetInput{req.Name, req.Description, req.Traits, req.ImagePath})
	if err != nil {
		return nil, err
	}
	return row.character(), nil
}

func (s *AssetService) UpdateCharacter(ctx context.Context, callerID, characterID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error) {
	row, err := s.update(ctx, characterKind, callerID, characterID, assetInput{req.Name, req.Description, req.Traits, req.ImagePath})
	if err != nil {
		return nil, err
	}
	return row.character(), nil
}

func (s *AssetService) StoryCharacters(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Character, error) {
	rows, err := s.listByStory(ctx, characterKind, callerID, storyID)
	if err != nil {
		return nil, err
	}
	return toCharacters(rows), nil
}

func (s *AssetService) UserCharacters(ctx context.Context, userID uuid.UUID) ([]*asset.Character, error) {
	rows, err := s.listByOwner(ctx, characterKind, userID)
	if err != nil {
		return nil, err
	}
	return toCharacters(rows), nil
}

func (s *AssetService) CreateSetting(ctx context.Context, callerID, storyID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error) {
	row, err := s.create(ctx, settingKind, callerID, storyID, assetInput{req.Name, req.Description, req.Attributes, req.ImagePath})
	if err != nil {
		return nil, err
	}
	return row.setting(), nil
}

func (s *AssetService) UpdateSetting(ctx context.Context, callerID, settingID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error) {
	row, err := s.update(ctx, settingKind, callerID, settingID, assetInput{req.Name, req.Description, req.Attributes, req.ImagePath})
	if err != nil {
		return nil, err
	}
	return row.setting(), nil
}

func (s *AssetService) StorySettings(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Setting, error) {
	rows, err := s.listByStory(ctx, settingKind, callerID, storyID)
	if err != nil {
		return nil, err
	}
	return toSettings(rows), nil
}

func (s *AssetService) UserSettings(ctx context.Context, userID uuid.UUID) ([]*asset.Setting, error) {
	rows, err := s.listByOwner(ctx, settingKind, userID)
	if err != nil {
		return nil, err
	}
	return toSettings(rows), nil
}

func toCharacters(rows []*assetRow) []*asset.Character {
	out := make([]*asset.Character, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.character())
	}
	return out
}

func toSettings(rows []*assetRow) []*asset.Setting {
	out := make([]*asset.Setting, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.setting())
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
