package template

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/storage"
)

func testInstance(tpl *models.Template) *Instance {
	return &Instance{
		Template:    tpl,
		CourseName:  "Intro Café",
		CourseHours: 35,
		CertDate:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		DateFormat:  "2 January 2006",
		CustomParams: map[string]string{
			"place": "Madrid",
		},
		VerifyBase: "https://certs.example.org/verify",
		Teachers: []Teacher{
			{Role: "Director", Name: "Dr. Ruiz"},
		},
	}
}

func TestSubstitutions(t *testing.T) {
	in := testInstance(&models.Template{})
	user := &models.User{Username: "ana.perez", Firstname: "Ana", Lastname: "Pérez", City: "Madrid"}

	dict := in.Substitutions(user, "abc-123", nil)

	assert.Equal(t, "Ana Pérez", dict["fullname"])
	assert.Equal(t, "Intro Café", dict["coursename"])
	assert.Equal(t, "1 May 2024", dict["certificatedate"])
	assert.Equal(t, "abc-123", dict["code"])
	assert.Equal(t, "35", dict["hours"])
	assert.Equal(t, "0", dict["grade"])
	assert.Equal(t, "Madrid", dict["place"])
	assert.Equal(t, "Director: Dr. Ruiz", dict["teachers"])
}

func TestSubstitutions_OverridesWin(t *testing.T) {
	in := testInstance(&models.Template{})
	user := &models.User{Username: "ana.perez", Firstname: "Stored", Lastname: "Name", City: "Madrid"}

	dict := in.Substitutions(user, "c", map[string]string{"firstname": "Roster", "city": "Sevilla"})

	assert.Equal(t, "Roster", dict["firstname"])
	assert.Equal(t, "Roster Name", dict["fullname"], "fullname tracks the override")
	assert.Equal(t, "Sevilla", dict["city"], "printing uses roster data even when the account is protected")
}

func TestReplaceTokens(t *testing.T) {
	dict := map[string]string{
		"fullname":   "Ana Pérez",
		"coursename": "Intro",
	}
	out := ReplaceTokens("Awarded to {FULLNAME} for {COURSENAME}. {UNKNOWN} left.", dict)
	assert.Equal(t, "Awarded to Ana Pérez for Intro.  left.", out)
}

func TestReplaceTokens_SinglePass(t *testing.T) {
	// A value that itself looks like a token must not be re-expanded
	// into another entry's value.
	dict := map[string]string{
		"fullname":   "{COURSENAME}",
		"coursename": "Intro",
	}
	out := ReplaceTokens("{FULLNAME}", dict)
	assert.NotContains(t, out, "Intro")
}

func TestReplaceTokens_StripsMarkupFromValues(t *testing.T) {
	out := ReplaceTokens("{NOTE}", map[string]string{"note": "<b>bold</b>"})
	assert.Equal(t, "bold", out)
}

func TestBuildDocument_QRFirstPage(t *testing.T) {
	store := storage.NewMemStore()
	blob, err := store.Create(context.Background(), "/templates/1/", "bg.png", []byte("png-bytes"))
	require.NoError(t, err)

	tpl := &models.Template{
		Name:             "Completion",
		Width:            297,
		Height:           210,
		CertificateText:  "Awarded to {FULLNAME}",
		CertificateImage: blob.PathHash,
		PrintQRCode:      true,
		QRCodeFirstPage:  true,
		CodeX:            10,
		CodeY:            10,
	}
	in := testInstance(tpl)
	user := &models.User{Username: "ana.perez", Firstname: "Ana", Lastname: "Pérez"}

	doc, err := in.BuildDocument(context.Background(), store, user, "abc-123", nil)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.True(t, doc.Landscape())
	assert.Equal(t, []byte("png-bytes"), doc.Pages[0].Background)
	assert.Equal(t, "Awarded to Ana Pérez", doc.Pages[0].Text)
	require.NotNil(t, doc.Pages[0].QR)
	assert.Equal(t, "https://certs.example.org/verify?code=abc-123", doc.Pages[0].QR.Payload)
}

func TestBuildDocument_QRTrailingPageReusesSecondImage(t *testing.T) {
	store := storage.NewMemStore()
	second, err := store.Create(context.Background(), "/templates/1/", "back.png", []byte("back"))
	require.NoError(t, err)

	tpl := &models.Template{
		Name:             "Completion",
		Width:            210,
		Height:           297,
		CertificateText:  "Front",
		EnableSecondPage: true,
		SecondImage:      second.PathHash,
		SecondPageText:   "Details for {FULLNAME}",
		PrintQRCode:      true,
		QRCodeFirstPage:  false,
	}
	in := testInstance(tpl)
	user := &models.User{Username: "ana.perez", Firstname: "Ana"}

	doc, err := in.BuildDocument(context.Background(), store, user, "abc", nil)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 3)
	assert.False(t, doc.Landscape(), "portrait when height exceeds width")
	assert.Nil(t, doc.Pages[0].QR)
	assert.Equal(t, "Details for Ana", doc.Pages[1].Text)
	require.NotNil(t, doc.Pages[2].QR)
	assert.Equal(t, []byte("back"), doc.Pages[2].Background)
}

func TestBuildDocument_MissingAsset(t *testing.T) {
	store := storage.NewMemStore()
	tpl := &models.Template{Name: "X", CertificateImage: "deadbeef"}
	in := testInstance(tpl)

	_, err := in.BuildDocument(context.Background(), store, &models.User{Username: "u"}, "c", nil)
	assert.Equal(t, ErrAssetMissing, err)
}

func TestCheckAssets(t *testing.T) {
	store := storage.NewMemStore()
	blob, err := store.Create(context.Background(), "/templates/1/", "bg.png", []byte("x"))
	require.NoError(t, err)

	svc := &Service{Store: store}
	ok := &models.Template{CertificateImage: blob.PathHash}
	assert.NoError(t, svc.CheckAssets(context.Background(), ok))

	broken := &models.Template{CertificateImage: "missing"}
	assert.Equal(t, ErrAssetMissing, svc.CheckAssets(context.Background(), broken))
}
