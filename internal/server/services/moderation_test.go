package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetApproved_TogglesEveryRow(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	v2 := h.publish(t, "u-owner", demoInput("2.0.0"))
	s := h.moderationService()

	h.expectCommit()
	require.NoError(t, s.SetApproved(context.Background(), "u-admin", v1.PackageID, true))

	rows := h.mem.rows(v1.PackageID)
	assert.Equal(t, models.VisibilityArchivedApproved, rows[v1.VersionID].Visibility)
	assert.Equal(t, models.VisibilityLatestApproved, rows[v2.VersionID].Visibility)
	assert.True(t, h.mem.packages[v1.PackageID].Approved)

	h.expectCommit()
	require.NoError(t, s.SetApproved(context.Background(), "u-admin", v1.PackageID, false))
	h.verify(t)

	rows = h.mem.rows(v1.PackageID)
	assert.Equal(t, models.VisibilityArchived, rows[v1.VersionID].Visibility)
	assert.Equal(t, models.VisibilityLatest, rows[v2.VersionID].Visibility)
	assert.False(t, rows[v2.VersionID].IsApproved)

	actions := h.mem.auditActions()
	assert.Equal(t, []string{models.AuditBadgeSet, models.AuditBadgeUnset}, actions[len(actions)-2:])
}

func TestSetApproved_AdminOnly(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))

	for _, actor := range []string{"u-owner", "u-mod"} {
		h.expectRollback()
		err := h.moderationService().SetApproved(context.Background(), actor, v1.PackageID, true)
		require.ErrorIs(t, err, common.ErrForbidden, actor)
	}
	h.verify(t)
	assert.False(t, h.mem.packages[v1.PackageID].Approved)
}

func TestSetSoftDeleted_RoundTrip(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	v2 := h.publish(t, "u-owner", demoInput("2.0.0"))
	h.mem.packages[v1.PackageID].Approved = true
	s := h.moderationService()

	h.expectCommit()
	require.NoError(t, s.SetSoftDeleted(context.Background(), "u-mod", v1.PackageID, true))

	pkg := h.mem.packages[v1.PackageID]
	require.NotNil(t, pkg.SoftDeletedAt)
	assert.Equal(t, models.ModerationHidden, pkg.ModerationStatus)
	rows := h.mem.rows(v1.PackageID)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, models.VisibilityDeleted, row.Visibility)
	}

	h.expectCommit()
	require.NoError(t, s.SetSoftDeleted(context.Background(), "u-owner", v1.PackageID, false))
	h.verify(t)

	pkg = h.mem.packages[v1.PackageID]
	assert.Nil(t, pkg.SoftDeletedAt)
	assert.Equal(t, models.ModerationActive, pkg.ModerationStatus)
	rows = h.mem.rows(v1.PackageID)
	assert.Equal(t, models.VisibilityArchivedApproved, rows[v1.VersionID].Visibility)
	assert.Equal(t, models.VisibilityLatestApproved, rows[v2.VersionID].Visibility)

	actions := h.mem.auditActions()
	assert.Equal(t, []string{models.AuditPackageDelete, models.AuditPackageUndelete}, actions[len(actions)-2:])
}

func TestSetSoftDeleted_Errors(t *testing.T) {
	h := newHarness(t)
	v1 := h.publish(t, "u-owner", demoInput("1.0.0"))
	s := h.moderationService()

	h.expectRollback()
	require.ErrorIs(t, s.SetSoftDeleted(context.Background(), "u-other", v1.PackageID, true), common.ErrForbidden)

	h.expectRollback()
	require.ErrorIs(t, s.SetSoftDeleted(context.Background(), "u-owner", "pkg-none", true), common.ErrorNotFound)

	h.mem.failOn["audit.append"] = errBoom{}
	h.expectRollback()
	require.ErrorContains(t, s.SetSoftDeleted(context.Background(), "u-owner", v1.PackageID, true), "error writing audit log: boom")
	h.verify(t)
}
