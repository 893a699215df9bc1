package bulk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/objectives"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/roster"
	"bulkcert-backend/internal/storage"
	"bulkcert-backend/internal/template"
	"bulkcert-backend/internal/users"
)

type bulkFixture struct {
	db           *gorm.DB
	store        *storage.MemStore
	orchestrator *Orchestrator
	rebuilder    *Rebuilder
	archiver     *Archiver
	queries      *Queries
	issues       *issues.Store
}

func setupBulkTest(t *testing.T) *bulkFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Template{}, &models.Objective{},
		&models.Bulk{}, &models.BulkIssue{}, &models.CertificateIssue{},
	))

	store := storage.NewMemStore()
	issueStore := &issues.Store{DB: db, Blobs: store}
	templateService := &template.Service{DB: db, Store: store}
	userService := &users.Service{DB: db, DefaultEmail: "{username}@certs.example.org"}
	renderer := &pdf.Writer{}

	return &bulkFixture{
		db:     db,
		store:  store,
		issues: issueStore,
		orchestrator: &Orchestrator{
			DB:         db,
			Log:        zerolog.Nop(),
			Templates:  templateService,
			Users:      userService,
			Issues:     issueStore,
			Renderer:   renderer,
			VerifyBase: "https://certs.example.org/verify",
			DateFormat: "2 January 2006",
		},
		rebuilder: &Rebuilder{
			DB:         db,
			Log:        zerolog.Nop(),
			Templates:  templateService,
			Issues:     issueStore,
			Renderer:   renderer,
			VerifyBase: "https://certs.example.org/verify",
			DateFormat: "2 January 2006",
		},
		archiver: &Archiver{DB: db, Log: zerolog.Nop(), Issues: issueStore},
		queries:  &Queries{DB: db, Issues: issueStore},
	}
}

func (f *bulkFixture) createTemplate(t *testing.T) *models.Template {
	tpl := &models.Template{
		CourseID:        7,
		CourseName:      "Intro Café",
		Name:            "Completion",
		Width:           297,
		Height:          210,
		CertificateText: "Awarded to {FULLNAME} on {CERTIFICATEDATE}, code {CODE}",
	}
	require.NoError(t, f.db.Create(tpl).Error)
	return tpl
}

func extUser(username, first, last string) roster.ExternalUser {
	return roster.ExternalUser{
		Username: username,
		Fields:   map[string]string{"firstname": first, "lastname": last},
		Profile:  map[string]string{},
	}
}

func testGroup(usernames ...roster.ExternalUser) *objectives.Group {
	return &objectives.Group{
		Name:      "Intro Café",
		Code:      "CA-1",
		GroupCode: "G-77",
		Hours:     35,
		Users:     usernames,
	}
}

func TestIssueBulk(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)
	objective := &models.Objective{CourseID: 7, Name: "Intro Café", Code: "CA-1", Hours: 40, Type: models.ObjectiveTypeLocal}
	require.NoError(t, f.db.Create(objective).Error)

	result, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Objective:  objective,
		Group:      testGroup(extUser("ana.perez", "Ana", "Pérez"), extUser("jlopez", "Juan", "López")),
		CustomTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Bulk)
	assert.NotZero(t, result.Bulk.ID)
	assert.Equal(t, "G-77", result.Bulk.GroupCode)
	assert.Equal(t, 40, result.Bulk.LocalHours)
	assert.Equal(t, 35, result.Bulk.RemoteHours)

	require.Len(t, result.Rows, 2)
	for _, row := range result.Rows {
		assert.Empty(t, row.Err)
		assert.NotZero(t, row.IssueID)
		assert.NotEmpty(t, row.Filename)
	}

	var links int64
	require.NoError(t, f.db.Model(&models.BulkIssue{}).Where("bulk_id = ?", result.Bulk.ID).Count(&links).Error)
	assert.EqualValues(t, 2, links)

	// The stored document is servable and carries the rendered text.
	issue, err := f.issues.Get(ctx, result.Rows[0].IssueID)
	require.NoError(t, err)
	blob, err := f.issues.Artifact(ctx, issue)
	require.NoError(t, err)
	assert.Contains(t, string(blob.Content), "%PDF")
	assert.Contains(t, string(blob.Content), "1 May 2024")
}

func TestIssueBulk_RowFailureIsolated(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)

	result, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Group: testGroup(
			extUser("ana.perez", "Ana", "Pérez"),
			extUser("   ", "", ""), // unusable username
			extUser("jlopez", "Juan", "López"),
		),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Bulk)

	require.Len(t, result.Rows, 3)
	assert.Empty(t, result.Rows[0].Err)
	assert.NotEmpty(t, result.Rows[1].Err)
	assert.Empty(t, result.Rows[2].Err, "rows after the failure still issue")

	var links int64
	require.NoError(t, f.db.Model(&models.BulkIssue{}).Count(&links).Error)
	assert.EqualValues(t, 2, links)
}

func TestIssueBulk_EmptyGroup(t *testing.T) {
	f := setupBulkTest(t)
	tpl := f.createTemplate(t)

	_, err := f.orchestrator.IssueBulk(context.Background(), IssueInput{
		TemplateID: tpl.ID,
		Group:      testGroup(),
	})
	assert.ErrorIs(t, err, objectives.ErrNoUsers)

	var headers int64
	require.NoError(t, f.db.Model(&models.Bulk{}).Count(&headers).Error)
	assert.EqualValues(t, 0, headers, "no header row without anyone to certify")
}

func TestIssueBulk_BrokenTemplateAsset(t *testing.T) {
	f := setupBulkTest(t)
	tpl := f.createTemplate(t)
	tpl.CertificateImage = "missing-hash"
	require.NoError(t, f.db.Save(tpl).Error)

	_, err := f.orchestrator.IssueBulk(context.Background(), IssueInput{
		TemplateID: tpl.ID,
		Group:      testGroup(extUser("ana.perez", "Ana", "Pérez")),
	})
	assert.Equal(t, template.ErrAssetMissing, err)

	var headers int64
	require.NoError(t, f.db.Model(&models.Bulk{}).Count(&headers).Error)
	assert.EqualValues(t, 0, headers)
}

// brokenMail fails every certificate send.
type brokenMail struct{}

func (brokenMail) SendCertificate(context.Context, string, string, string, string) error {
	return errors.New("smtp unreachable")
}

func (brokenMail) SendNewAccount(context.Context, string, string) error { return nil }

func TestIssueBulk_MailFailureIsAccountedWarning(t *testing.T) {
	f := setupBulkTest(t)
	f.orchestrator.Mail = brokenMail{}
	tpl := f.createTemplate(t)

	result, err := f.orchestrator.IssueBulk(context.Background(), IssueInput{
		TemplateID: tpl.ID,
		Group:      testGroup(extUser("ana.perez", "Ana", "Pérez")),
		SendMail:   true,
	})
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Empty(t, result.Rows[0].Err, "the row still issues")
	assert.NotZero(t, result.Rows[0].IssueID)
	assert.Contains(t, result.Rows[0].Warning, "email")

	joined := strings.Join(result.Logs, "\n")
	assert.Contains(t, joined, "warning: certificate email to", "the failure shows up in the run accounting")
}

func TestIssueBulk_ReissueSameUserRegenerates(t *testing.T) {
	f := setupBulkTest(t)
	ctx := context.Background()
	tpl := f.createTemplate(t)

	first, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Group:      testGroup(extUser("ana.perez", "Ana", "Pérez")),
	})
	require.NoError(t, err)
	firstIssue, err := f.issues.Get(ctx, first.Rows[0].IssueID)
	require.NoError(t, err)
	firstHash := firstIssue.PathHash

	time.Sleep(time.Millisecond)
	second, err := f.orchestrator.IssueBulk(ctx, IssueInput{
		TemplateID: tpl.ID,
		Group:      testGroup(extUser("ana.perez", "Ana", "Pérez")),
	})
	require.NoError(t, err)

	assert.Equal(t, first.Rows[0].IssueID, second.Rows[0].IssueID, "same user keeps the same issue and code")
	secondIssue, err := f.issues.Get(ctx, second.Rows[0].IssueID)
	require.NoError(t, err)
	assert.NotEqual(t, firstHash, secondIssue.PathHash, "the document itself is regenerated")

	var count int64
	require.NoError(t, f.db.Model(&models.CertificateIssue{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
