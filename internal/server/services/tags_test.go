package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTags_RepointLatest(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	v2 := h.publish(t, "u-owner", demoInput("2.0.0"))

	h.expectCommit()
	tags, err := h.tagService().UpdateTags(context.Background(), "u-owner", v1.PackageID,
		[]TagUpdate{{Tag: "latest", VersionID: v1.VersionID}, {Tag: "beta", VersionID: v2.VersionID}})
	require.NoError(t, err)
	h.verify(t)

	assert.Equal(t, models.Tags{"latest": v1.VersionID, "beta": v2.VersionID}, tags)

	pkg := h.mem.packages[v1.PackageID]
	assert.Equal(t, v1.VersionID, *pkg.LatestVersionID)

	rows := h.mem.rows(v1.PackageID)
	assert.True(t, rows[v1.VersionID].IsLatest)
	assert.Equal(t, models.VisibilityLatest, rows[v1.VersionID].Visibility)
	assert.False(t, rows[v2.VersionID].IsLatest)
	assert.Equal(t, models.VisibilityArchived, rows[v2.VersionID].Visibility)

	last := h.mem.audit[len(h.mem.audit)-1]
	assert.Equal(t, models.AuditPackageTags, last.Action)
	assert.Equal(t, map[string]any{"latest": "1.0.0", "beta": "2.0.0"}, last.Metadata["tags"])
}

func TestUpdateTags_NonLatestLeavesProjections(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	v2 := h.publish(t, "u-owner", demoInput("2.0.0"))
	before := h.mem.rows(v1.PackageID)

	h.expectCommit()
	_, err := h.tagService().UpdateTags(context.Background(), "u-mod", v1.PackageID,
		[]TagUpdate{{Tag: "stable", VersionID: v1.VersionID}})
	require.NoError(t, err)
	h.verify(t)

	assert.Equal(t, before, h.mem.rows(v1.PackageID))
	assert.Equal(t, v2.VersionID, *h.mem.packages[v1.PackageID].LatestVersionID)
}

func TestUpdateTags_SoftDeletedStaysDeleted(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	h.publish(t, "u-owner", demoInput("2.0.0"))

	h.expectCommit()
	require.NoError(t, h.moderationService().SetSoftDeleted(context.Background(), "u-owner", v1.PackageID, true))

	h.expectCommit()
	_, err := h.tagService().UpdateTags(context.Background(), "u-owner", v1.PackageID,
		[]TagUpdate{{Tag: "latest", VersionID: v1.VersionID}})
	require.NoError(t, err)
	h.verify(t)

	for _, row := range h.mem.rows(v1.PackageID) {
		assert.Equal(t, models.VisibilityDeleted, row.Visibility)
	}
	assert.True(t, h.mem.rows(v1.PackageID)[v1.VersionID].IsLatest)
}

func TestUpdateTags_Errors(t *testing.T) {
	h := newHarness(t)
	demo := h.publish(t, "u-owner", demoInput("1.0.0"))
	other := demoInput("1.0.0")
	other.Slug = "other"
	foreign := h.publish(t, "u-other", other)

	tests := []struct {
		name    string
		actor   string
		pkg     string
		updates []TagUpdate
		want    error
	}{
		{"stranger", "u-other", demo.PackageID, []TagUpdate{{Tag: "x", VersionID: demo.VersionID}}, common.ErrForbidden},
		{"unknown actor", "u-none", demo.PackageID, nil, common.ErrActorNotFound},
		{"unknown package", "u-owner", "pkg-none", nil, common.ErrorNotFound},
		{"foreign version", "u-owner", demo.PackageID, []TagUpdate{{Tag: "x", VersionID: foreign.VersionID}}, common.ErrVersionNotFound},
		{"missing version", "u-owner", demo.PackageID, []TagUpdate{{Tag: "x", VersionID: "ver-none"}}, common.ErrVersionNotFound},
		{"bad tag", "u-owner", demo.PackageID, []TagUpdate{{Tag: "bad tag", VersionID: demo.VersionID}}, common.ErrInvalidTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.expectRollback()
			_, err := h.tagService().UpdateTags(context.Background(), tt.actor, tt.pkg, tt.updates)
			require.ErrorIs(t, err, tt.want)
		})
	}
	h.verify(t)

	assert.Equal(t, models.Tags{"latest": demo.VersionID}, h.mem.packages[demo.PackageID].Tags)
}
