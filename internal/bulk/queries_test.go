package bulk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
)

func TestSearch(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)

	for _, username := range []string{"ana.perez", "jlopez"} {
		_, err := f.orchestrator.IssueBulk(ctx, IssueInput{
			TemplateID: tpl.ID,
			Group:      testGroup(extUser(username, "A", "B")),
		})
		require.NoError(t, err)
	}

	all, err := f.queries.Search(ctx, 0, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	byCourse, err := f.queries.Search(ctx, 7, "", 0)
	require.NoError(t, err)
	assert.Len(t, byCourse, 2)

	none, err := f.queries.Search(ctx, 99, "", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	matched, err := f.queries.Search(ctx, 0, "G-77", 1)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestCertified(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)

	result, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Group: testGroup(
			extUser("ana.perez", "Ana", "Pérez"),
			extUser("jlopez", "Juan", "López"),
		),
	})
	require.NoError(t, err)

	certified, err := f.queries.Certified(ctx, result.Bulk.ID)
	require.NoError(t, err)
	require.Len(t, certified, 2)
	assert.Equal(t, "ana.perez", certified[0].User.Username)
	assert.Contains(t, certified[0].Filename, ".pdf")

	_, err = f.queries.Certified(ctx, 999)
	assert.Equal(t, ErrBulkNotFound, err)
}

func TestUserHistory(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	result := issueOne(t, f, "ana.perez")

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "ana.perez").First(&user).Error)

	history, err := f.queries.UserHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.Rows[0].IssueID, history[0].ID)

	// Deleted issues stay in the history.
	require.NoError(t, f.queries.DeleteIssue(ctx, result.Rows[0].IssueID))
	history, err = f.queries.UserHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].TimeDeleted)
}

func TestDeleteIssue(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	result := issueOne(t, f, "ana.perez")
	issueID := result.Rows[0].IssueID

	require.NoError(t, f.queries.DeleteIssue(ctx, issueID))

	issue, err := f.issues.Get(ctx, issueID)
	require.NoError(t, err)
	assert.NotNil(t, issue.TimeDeleted)
	assert.False(t, f.store.Exists(ctx, issue.PathHash))

	var links int64
	require.NoError(t, f.db.Model(&models.BulkIssue{}).Count(&links).Error)
	assert.EqualValues(t, 0, links)

	// The header survives individual deletes.
	_, err = f.queries.Get(ctx, result.Bulk.ID)
	assert.NoError(t, err)

	assert.Equal(t, issues.ErrIssueNotFound, f.queries.DeleteIssue(ctx, 999))
}

func TestDeleteBulk(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)

	result, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Group: testGroup(
			extUser("ana.perez", "Ana", "Pérez"),
			extUser("jlopez", "Juan", "López"),
		),
	})
	require.NoError(t, err)

	require.NoError(t, f.queries.DeleteBulk(ctx, result.Bulk.ID))

	_, err = f.queries.Get(ctx, result.Bulk.ID)
	assert.Equal(t, ErrBulkNotFound, err)

	var links int64
	require.NoError(t, f.db.Model(&models.BulkIssue{}).Count(&links).Error)
	assert.EqualValues(t, 0, links)

	var active int64
	require.NoError(t, f.db.Model(&models.CertificateIssue{}).
		Where("time_deleted IS NULL").Count(&active).Error)
	assert.EqualValues(t, 0, active, "every linked issue is withdrawn")
}
