package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/pkg/textutil"
	"bulkcert-backend/internal/storage"
)

// Teacher is one instructor printed on the certificate.
type Teacher struct {
	Role string
	Name string
}

// Instance is one template bound to the run-level issuance data. Per-user
// data (fields, code) is supplied at substitution time.
type Instance struct {
	Template     *models.Template
	CourseName   string
	CourseHours  int
	CertDate     time.Time
	DateFormat   string // Go layout; falls back to the template's, then a builtin
	CustomParams map[string]string
	VerifyBase   string // verification endpoint base, code appended as ?code=
	Teachers     []Teacher
}

// leftoverToken matches placeholder tokens that survived substitution.
var leftoverToken = regexp.MustCompile(`\{[A-Z][A-Z0-9_]*\}`)

func (in *Instance) dateLayout() string {
	if in.DateFormat != "" {
		return in.DateFormat
	}
	if in.Template != nil && in.Template.DateFormat != "" {
		return in.Template.DateFormat
	}
	return "2 January 2006"
}

// VerifyURL is the public verification link for an issue code, also used
// as the QR payload.
func (in *Instance) VerifyURL(code string) string {
	return fmt.Sprintf("%s?code=%s", strings.TrimRight(in.VerifyBase, "/"), code)
}

// Substitutions builds the replacement dictionary for one recipient.
// Overrides carry roster values that must print even when the stored
// account keeps its own data; they win over the account fields.
func (in *Instance) Substitutions(user *models.User, code string, overrides map[string]string) map[string]string {
	dict := map[string]string{}

	for _, field := range models.OptionalFields {
		dict[field] = user.Field(field)
	}
	dict["username"] = user.Username
	dict["fullname"] = user.Fullname()

	for key, value := range overrides {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		dict[key] = value
		if key == "firstname" || key == "lastname" {
			first, last := dict["firstname"], dict["lastname"]
			switch {
			case first == "":
				dict["fullname"] = last
			case last == "":
				dict["fullname"] = first
			default:
				dict["fullname"] = first + " " + last
			}
		}
	}

	dict["coursename"] = in.CourseName
	dict["certificatedate"] = in.CertDate.Format(in.dateLayout())
	dict["date"] = dict["certificatedate"]
	dict["grade"] = "0"
	dict["code"] = code
	dict["certificatecode"] = code
	dict["hours"] = fmt.Sprintf("%d", in.CourseHours)

	var teachers []string
	for _, t := range in.Teachers {
		teachers = append(teachers, fmt.Sprintf("%s: %s", t.Role, t.Name))
	}
	dict["teachers"] = strings.Join(teachers, "\n")

	for key, value := range in.CustomParams {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			dict[key] = value
		}
	}

	return dict
}

// ReplaceTokens substitutes {UPPERKEY} tokens in one pass, so a value
// containing another token is printed literally, never re-expanded.
// Unmatched tokens are stripped afterwards.
func ReplaceTokens(text string, dict map[string]string) string {
	pairs := make([]string, 0, len(dict)*2)
	for key, value := range dict {
		pairs = append(pairs, "{"+strings.ToUpper(key)+"}", textutil.StripTags(value))
	}
	replaced := strings.NewReplacer(pairs...).Replace(text)
	return leftoverToken.ReplaceAllString(replaced, "")
}

// BuildDocument assembles the printable document for one recipient. The
// QR block goes on the first page when the template says so; otherwise a
// dedicated trailing page carries it, reusing the second-page background
// when one is configured.
func (in *Instance) BuildDocument(ctx context.Context, store storage.Store, user *models.User, code string, overrides map[string]string) (*pdf.Document, error) {
	tpl := in.Template
	dict := in.Substitutions(user, code, overrides)

	doc := &pdf.Document{
		Title:    tpl.Name,
		Subject:  in.CourseName,
		Keywords: code,
		Width:    tpl.Width,
		Height:   tpl.Height,
	}

	first := pdf.Page{
		Text: ReplaceTokens(tpl.CertificateText, dict),
		X:    tpl.CertificateTextX,
		Y:    tpl.CertificateTextY,
	}
	background, err := in.background(ctx, store, tpl.CertificateImage)
	if err != nil {
		return nil, err
	}
	first.Background = background

	qr := &pdf.QRBlock{Payload: in.VerifyURL(code), X: tpl.CodeX, Y: tpl.CodeY}
	if tpl.PrintQRCode && tpl.QRCodeFirstPage {
		first.QR = qr
	}
	doc.Pages = append(doc.Pages, first)

	if tpl.EnableSecondPage {
		second := pdf.Page{
			Text: ReplaceTokens(tpl.SecondPageText, dict),
			X:    tpl.SecondPageX,
			Y:    tpl.SecondPageY,
		}
		second.Background, err = in.background(ctx, store, tpl.SecondImage)
		if err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, second)
	}

	if tpl.PrintQRCode && !tpl.QRCodeFirstPage {
		last := pdf.Page{QR: qr}
		if tpl.EnableSecondPage {
			last.Background, err = in.background(ctx, store, tpl.SecondImage)
			if err != nil {
				return nil, err
			}
		}
		doc.Pages = append(doc.Pages, last)
	}

	return doc, nil
}

func (in *Instance) background(ctx context.Context, store storage.Store, hash string) ([]byte, error) {
	if hash == "" {
		return nil, nil
	}
	blob, err := store.GetByHash(ctx, hash)
	if err == storage.ErrBlobNotFound {
		return nil, ErrAssetMissing
	}
	if err != nil {
		return nil, err
	}
	return blob.Content, nil
}
