package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/asset"
	"storyquestAPI/internal/story"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateStoryDefaults(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")

	st, err := f.stories.Create(f.ctx, u.ID, &story.CreateStoryRequest{Title: "  The Lost Map "})
	require.NoError(t, err)
	assert.Equal(t, "The Lost Map", st.Title)
	assert.Equal(t, u.AgeGroup, st.AgeGroup)
	assert.True(t, st.IsDraft)
	assert.False(t, st.IsPublic)
	assert.Nil(t, st.ChallengeID)

	_, err = f.stories.Create(f.ctx, u.ID, &story.CreateStoryRequest{Title: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.stories.Create(f.ctx, uuid.Nil, &story.CreateStoryRequest{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotLoggedIn)
}

func TestStoryVisibility(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "owner")
	other := f.register(t, "other")
	st := f.story(t, owner, "Secret")

	_, err := f.stories.Get(f.ctx, owner.ID, st.ID)
	require.NoError(t, err)
	_, err = f.stories.Get(f.ctx, other.ID, st.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	_, err = f.stories.Get(f.ctx, uuid.Nil, st.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	isPublic, err := f.stories.ToggleVisibility(f.ctx, owner.ID, st.ID)
	require.NoError(t, err)
	require.True(t, isPublic)

	_, err = f.stories.Get(f.ctx, other.ID, st.ID)
	assert.NoError(t, err)
	_, err = f.stories.Get(f.ctx, uuid.Nil, st.ID)
	assert.NoError(t, err)

	_, err = f.stories.ToggleVisibility(f.ctx, other.ID, st.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	_, err = f.stories.Get(f.ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrStoryNotFound)
}

func TestUpdateStoryPatch(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	st := f.story(t, u, "Draft")

	updated, err := f.stories.Update(f.ctx, u.ID, st.ID, &story.UpdateStoryRequest{
		Description: strPtr("A tale"),
		IsDraft:     boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "A tale", updated.Description)
	assert.False(t, updated.IsDraft)
	assert.False(t, updated.UpdatedAt.Before(st.UpdatedAt))

	_, err = f.stories.Update(f.ctx, u.ID, st.ID, &story.UpdateStoryRequest{Title: strPtr("")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReplaceElementsOrdersByPosition(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	st := f.story(t, u, "Elements")

	hero, err := f.assets.CreateCharacter(f.ctx, u.ID, st.ID, &asset.CharacterRequest{Name: strPtr("Hero")})
	require.NoError(t, err)

	req := &story.ReplaceElementsRequest{
		Elements: []story.ElementInput{
			{Type: "narration", Content: json.RawMessage(`{"text":"Once"}`)},
			{Type: "dialogue", Content: json.RawMessage(`{"text":"Hi"}`), CharacterID: &hero.ID},
			{Type: "narration", Content: json.RawMessage(`{"text":"The end"}`)},
		},
		IsComplete: boolPtr(true),
	}
	got, err := f.stories.ReplaceElements(f.ctx, u.ID, st.ID, req)
	require.NoError(t, err)
	require.Len(t, got.Elements, 3)
	assert.True(t, got.IsComplete)
	for i, e := range got.Elements {
		assert.Equal(t, i, e.Position)
	}
	assert.Equal(t, hero.ID, *got.Elements[1].CharacterID)

	got, err = f.stories.ReplaceElements(f.ctx, u.ID, st.ID, &story.ReplaceElementsRequest{
		Elements: []story.ElementInput{{Type: "narration", Content: json.RawMessage(`"short"`)}},
	})
	require.NoError(t, err)
	require.Len(t, got.Elements, 1)
	assert.Equal(t, `"short"`, got.Elements[0].Content)

	_, err = f.stories.ReplaceElements(f.ctx, u.ID, st.ID, &story.ReplaceElementsRequest{
		Elements: []story.ElementInput{{Type: "dialogue", CharacterID: ptrUUID(uuid.New())}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM story_elements WHERE story_id = $1`, st.ID))
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func TestAutosave(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	st := f.story(t, u, "Autosave")

	savedAt, err := f.stories.Autosave(f.ctx, u.ID, st.ID, json.RawMessage(`{"page":2}`))
	require.NoError(t, err)
	assert.False(t, savedAt.IsZero())

	got, err := f.stories.Get(f.ctx, u.ID, st.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"page":2}`, got.Content)

	_, err = f.stories.Autosave(f.ctx, u.ID, st.ID, json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteStoryCascades(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	st := f.story(t, u, "Doomed")

	_, err := f.assets.CreateCharacter(f.ctx, u.ID, st.ID, &asset.CharacterRequest{Name: strPtr("Knight")})
	require.NoError(t, err)
	_, err = f.assets.CreateSetting(f.ctx, u.ID, st.ID, &asset.SettingRequest{Name: strPtr("Castle")})
	require.NoError(t, err)
	_, err = f.stories.ReplaceElements(f.ctx, u.ID, st.ID, &story.ReplaceElementsRequest{
		Elements: []story.ElementInput{{Type: "narration", Content: json.RawMessage(`{}`)}},
	})
	require.NoError(t, err)
	_, err = f.progress.SaveProgress(f.ctx, u.ID, st.ID, "characters", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = f.achievements.Grant(f.ctx, u.ID, "First Share")
	require.NoError(t, err)

	other := f.register(t, "other")
	assert.ErrorIs(t, f.stories.Delete(f.ctx, other.ID, st.ID), apperr.ErrPermissionDenied)

	require.NoError(t, f.stories.Delete(f.ctx, u.ID, st.ID))

	for _, table := range []string{"characters", "settings", "story_elements", "progress"} {
		assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM `+table+` WHERE story_id = $1`, st.ID), table)
	}
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM users WHERE id = $1`, u.ID))
	assert.Equal(t, []string{"First Share"}, f.heldNames(t, u.ID))
	assert.ErrorIs(t, f.stories.Delete(f.ctx, u.ID, st.ID), apperr.ErrStoryNotFound)
}

func TestStoryOrderingQueries(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	a, b, c := f.story(t, u, "A"), f.story(t, u, "B"), f.story(t, u, "C")

	base := time.Now().Add(-time.Hour)
	_, err := f.pool.Exec(f.ctx, `
		UPDATE stories SET
			is_public  = (id <> $3),
			is_draft   = (id = $3),
			updated_at = CASE id WHEN $1 THEN $4::timestamptz WHEN $2 THEN $5::timestamptz ELSE $6::timestamptz END,
			share_date = CASE id WHEN $1 THEN $5::timestamptz WHEN $2 THEN $4::timestamptz END,
			view_count = 5,
			like_count = CASE id WHEN $1 THEN 1 ELSE 3 END
		WHERE user_id = $7`,
		a.ID, b.ID, c.ID, base, base.Add(time.Minute), base.Add(2*time.Minute), u.ID)
	require.NoError(t, err)

	mine, err := f.stories.UserStories(f.ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, storyIDs(mine))

	all, err := f.stories.UserStories(f.ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, storyIDs(all))

	public, err := f.stories.PublicStories(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, storyIDs(public))

	featured, err := f.stories.FeaturedStories(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, storyIDs(featured))
}

func TestFeaturedTieBreaksOnNewest(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "hero")
	older, newer := f.story(t, u, "Older"), f.story(t, u, "Newer")

	_, err := f.pool.Exec(f.ctx, `UPDATE stories SET is_public = TRUE, created_at = NOW() - INTERVAL '1 day' WHERE id = $1`, older.ID)
	require.NoError(t, err)
	_, err = f.pool.Exec(f.ctx, `UPDATE stories SET is_public = TRUE WHERE id = $1`, newer.ID)
	require.NoError(t, err)

	featured, err := f.stories.FeaturedStories(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newer.ID}, storyIDs(featured))
}

func storyIDs(stories []*story.Story) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	return ids
}
