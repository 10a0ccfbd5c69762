package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/pipeline"
)

func newPipelineRecord() *model.Record {
	return model.NewRecord(model.FamilyStability)
}

func TestAdvanceToVariationRequiresSelection(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "stability_sessions/demo/base_images/a.png")

	assert.False(t, pipeline.AdvanceToVariation(rec))
	assert.Equal(t, model.StageBase, rec.Step)

	require.True(t, pipeline.Select(rec, model.KindBase, "stability_sessions/demo/base_images/a.png"))
	assert.True(t, pipeline.AdvanceToVariation(rec))
	assert.Equal(t, model.StageVariation, rec.Step)
}

func TestAdvanceToEditingWithSelectedVariation(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "base.png")
	require.True(t, pipeline.Select(rec, model.KindBase, "base.png"))
	require.True(t, pipeline.AdvanceToVariation(rec))

	// No variation selected and not using the original: rejected.
	assert.False(t, pipeline.AdvanceToEditing(rec, false))
	assert.Equal(t, model.StageVariation, rec.Step)

	rec.AppendImage(model.KindVariation, "var.png")
	require.True(t, pipeline.Select(rec, model.KindVariation, "var.png"))
	require.True(t, pipeline.AdvanceToEditing(rec, false))
	assert.Equal(t, model.StageEditing, rec.Step)
	assert.Equal(t, "var.png", rec.EditingImage)
}

func TestAdvanceToEditingUseOriginalBypassesVariation(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "base.png")
	require.True(t, pipeline.Select(rec, model.KindBase, "base.png"))
	require.True(t, pipeline.AdvanceToVariation(rec))

	require.True(t, pipeline.AdvanceToEditing(rec, true))
	assert.Equal(t, model.StageEditing, rec.Step)
	assert.Equal(t, "base.png", rec.EditingImage)
}

func TestKeepEditingReplacesWorkingImage(t *testing.T) {
	rec := newPipelineRecord()
	rec.Step = model.StageEditing
	rec.EditingImage = "original.png"

	assert.False(t, pipeline.KeepEditing(rec))
	assert.Equal(t, "original.png", rec.EditingImage)

	rec.AppendImage(model.KindEditing, "edited.png")
	require.True(t, pipeline.Select(rec, model.KindEditing, "edited.png"))
	require.True(t, pipeline.KeepEditing(rec))
	assert.Equal(t, "edited.png", rec.EditingImage)
}

func TestBackPreservesDownstreamState(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "base.png")
	require.True(t, pipeline.Select(rec, model.KindBase, "base.png"))
	require.True(t, pipeline.AdvanceToVariation(rec))
	rec.AppendImage(model.KindVariation, "var.png")
	require.True(t, pipeline.Select(rec, model.KindVariation, "var.png"))

	require.True(t, pipeline.Back(rec))
	assert.Equal(t, model.StageBase, rec.Step)
	assert.Equal(t, []string{"var.png"}, rec.Images(model.KindVariation))
	assert.NotNil(t, rec.SelectedVariation)

	assert.False(t, pipeline.Back(rec), "base has no previous stage")
}

func TestSelectUnknownKeyRejected(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "a.png")

	assert.False(t, pipeline.Select(rec, model.KindBase, "missing.png"))
	assert.Nil(t, rec.SelectedBase)
}

func TestRemoveSelectedArtifactClearsSelection(t *testing.T) {
	rec := newPipelineRecord()
	for _, key := range []string{"a.png", "b.png", "c.png"} {
		rec.AppendImage(model.KindBase, key)
	}
	require.True(t, pipeline.Select(rec, model.KindBase, "b.png"))

	require.True(t, pipeline.RemoveArtifact(rec, model.KindBase, "b.png"))
	assert.Equal(t, []string{"a.png", "c.png"}, rec.Images(model.KindBase))
	assert.Nil(t, rec.SelectedBase)
}

func TestRemoveOtherArtifactReindexesSelection(t *testing.T) {
	rec := newPipelineRecord()
	for _, key := range []string{"a.png", "b.png", "c.png"} {
		rec.AppendImage(model.KindBase, key)
	}
	require.True(t, pipeline.Select(rec, model.KindBase, "b.png"))
	require.Equal(t, 1, rec.SelectedBase.Index)

	require.True(t, pipeline.RemoveArtifact(rec, model.KindBase, "a.png"))
	assert.Equal(t, []string{"b.png", "c.png"}, rec.Images(model.KindBase))
	require.NotNil(t, rec.SelectedBase)
	assert.Equal(t, "b.png", rec.SelectedBase.Key)
	assert.Equal(t, 0, rec.SelectedBase.Index, "cached index must track the new list position")
}

func TestRemoveUnknownArtifact(t *testing.T) {
	rec := newPipelineRecord()
	rec.AppendImage(model.KindBase, "a.png")

	assert.False(t, pipeline.RemoveArtifact(rec, model.KindBase, "zzz.png"))
	assert.Equal(t, []string{"a.png"}, rec.Images(model.KindBase))
}
