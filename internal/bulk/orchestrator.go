// Package bulk drives batch certificate issuance: one persisted header
// per run, one issue per roster row, with row failures isolated so a
// bad row never takes the batch down.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"bulkcert-backend/internal/emails"
	"bulkcert-backend/internal/issues"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/objectives"
	"bulkcert-backend/internal/pdf"
	"bulkcert-backend/internal/pkg/validation"
	"bulkcert-backend/internal/roster"
	"bulkcert-backend/internal/template"
	"bulkcert-backend/internal/users"
)

// Orchestrator runs one issuance batch end to end.
type Orchestrator struct {
	DB        *gorm.DB
	Log       zerolog.Logger
	Templates *template.Service
	Users     *users.Service
	Issues    *issues.Store
	Renderer  pdf.Renderer
	Mail      emails.Sender

	VerifyBase string
	DateFormat string
}

// IssueInput is one batch request. Group carries the already-resolved
// roster (local pasted rows or the remote lookup result).
type IssueInput struct {
	TemplateID   uint
	Objective    *models.Objective
	Group        *objectives.Group
	CustomParams map[string]string
	CustomTime   time.Time // operator-chosen certificate date; zero picks the group end date, then now
	Issuer       *models.User
	SendMail     bool
	Teachers     []template.Teacher
}

// Row is the outcome for one roster row, in roster order. Warning marks
// a row that issued fine but whose notification failed.
type Row struct {
	Username string `json:"username"`
	IssueID  uint   `json:"issue_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Err      string `json:"error,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// Result is the batch outcome: the persisted header (nil only when the
// run failed before issuance started) plus per-row outcomes and the
// operator-facing logs.
type Result struct {
	Bulk   *models.Bulk `json:"bulk"`
	Rows   []Row        `json:"rows"`
	Logs   []string     `json:"logs"`
	Errors []string     `json:"errors"`
}

// certDate picks the date printed on the certificates.
func certDate(in IssueInput) time.Time {
	if !in.CustomTime.IsZero() {
		return in.CustomTime
	}
	if !in.Group.EndDate.IsZero() {
		return in.Group.EndDate
	}
	return time.Now()
}

// IssueBulk runs one batch. Pre-flight failures (missing template,
// broken template assets, an empty roster) abort before anything is
// written. Once the header row is in, every roster row is attempted and
// the header survives even if all of them fail.
func (o *Orchestrator) IssueBulk(ctx context.Context, in IssueInput) (*Result, error) {
	tpl, err := o.Templates.Get(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := o.Templates.CheckAssets(ctx, tpl); err != nil {
		return nil, err
	}
	if in.Group == nil || len(in.Group.Users) == 0 {
		return nil, objectives.ErrNoUsers
	}

	res := &Result{}

	reconciled := o.Users.Reconcile(ctx, users.ReconcileInput{
		Users:        in.Group.Users,
		CreatorEmail: issuerEmail(in.Issuer),
		Notify:       in.SendMail,
	})
	res.Logs = append(res.Logs, reconciled.Logs...)
	res.Errors = append(res.Errors, reconciled.Errors...)

	date := certDate(in)

	header := &models.Bulk{
		IssuingID:       issuerID(in.Issuer),
		CertificateID:   tpl.ID,
		CertificateName: tpl.Name,
		Code:            in.Group.Code,
		GroupCode:       in.Group.GroupCode,
		BulkTime:        time.Now(),
		CustomTime:      date,
		LocalHours:      localHours(in.Objective),
		RemoteHours:     in.Group.Hours,
		CourseName:      courseName(tpl, in.Group),
		CourseID:        tpl.CourseID,
		CustomParams:    toJSONMap(in.CustomParams),
	}
	if !in.Group.EndDate.IsZero() {
		end := in.Group.EndDate
		header.RemoteTime = &end
	}
	if err := o.DB.WithContext(ctx).Create(header).Error; err != nil {
		return nil, err
	}
	res.Bulk = header

	instance := &template.Instance{
		Template:     tpl,
		CourseName:   header.CourseName,
		CourseHours:  hours(in.Objective, in.Group),
		CertDate:     date,
		DateFormat:   o.DateFormat,
		CustomParams: in.CustomParams,
		VerifyBase:   o.VerifyBase,
		Teachers:     in.Teachers,
	}

	cache := issues.NewCache(0)
	for k, row := range reconciled.Users {
		ext := in.Group.Users[k]
		outcome := o.issueRow(ctx, cache, header, instance, row, ext, in.SendMail)
		if outcome.Err != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("user %q: %s", outcome.Username, outcome.Err))
			o.Log.Warn().Str("username", outcome.Username).Str("error", outcome.Err).
				Uint("bulk_id", header.ID).Msg("row failed")
		} else {
			res.Logs = append(res.Logs, fmt.Sprintf("certificate %s issued for %q", outcome.Filename, outcome.Username))
		}
		if outcome.Warning != "" {
			res.Logs = append(res.Logs, fmt.Sprintf("warning: %s", outcome.Warning))
		}
		res.Rows = append(res.Rows, outcome)
	}

	o.Log.Info().Uint("bulk_id", header.ID).Int("rows", len(res.Rows)).
		Int("errors", len(res.Errors)).Msg("bulk issuance finished")
	return res, nil
}

// issueRow generates one certificate. Any failure is reported in the
// row outcome and never propagates.
func (o *Orchestrator) issueRow(ctx context.Context, cache *issues.Cache, header *models.Bulk, instance *template.Instance, row users.ReconciledUser, ext roster.ExternalUser, sendMail bool) Row {
	out := Row{Username: ext.Username}
	if row.Err != "" {
		out.Err = row.Err
		return out
	}
	user := row.User

	issue, err := o.Issues.GetOrCreate(ctx, cache, header.CertificateID, user.ID, header.CourseName, header.CertificateName)
	if err != nil {
		out.Err = "the certificate issue could not be created"
		return out
	}
	out.IssueID = issue.ID

	// Roster values must print even where the account keeps its own
	// data, so every batch renders fresh.
	if err := o.Issues.MarkDirty(ctx, issue); err != nil {
		out.Err = "the issue could not be marked for regeneration"
		return out
	}

	doc, err := instance.BuildDocument(ctx, o.Issues.Blobs, user, issue.Code, overrides(ext))
	if err != nil {
		out.Err = "the document could not be assembled"
		return out
	}
	content, err := o.Renderer.Render(doc)
	if err != nil {
		out.Err = "the document could not be rendered"
		return out
	}
	blob, err := o.Issues.SaveArtifact(ctx, issue, content)
	if err != nil {
		out.Err = "the document could not be stored"
		return out
	}
	out.Filename = blob.Filename

	link := &models.BulkIssue{IssueID: issue.ID, BulkID: header.ID}
	if err := o.DB.WithContext(ctx).Create(link).Error; err != nil {
		out.Err = "the issue could not be linked to the bulk"
		return out
	}

	// A failed notification is a warning on an otherwise issued row.
	if sendMail && o.Mail != nil && validation.IsValidEmail(user.Email) {
		if err := o.Mail.SendCertificate(ctx, user.Email, user.Fullname(), blob.Filename, header.CourseName); err != nil {
			out.Warning = fmt.Sprintf("certificate email to %q failed", user.Email)
			o.Log.Warn().Str("email", user.Email).Err(err).Msg("certificate email failed")
		}
	}

	return out
}

// overrides collects the roster row values that take precedence over the
// stored account when printing.
func overrides(ext roster.ExternalUser) map[string]string {
	out := map[string]string{}
	for key, value := range ext.Fields {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

func issuerID(issuer *models.User) uint {
	if issuer == nil {
		return 0
	}
	return issuer.ID
}

func issuerEmail(issuer *models.User) string {
	if issuer == nil {
		return ""
	}
	return issuer.Email
}

func localHours(objective *models.Objective) int {
	if objective == nil {
		return 0
	}
	return objective.Hours
}

// hours prefers the remote group's figure when the source reported one.
func hours(objective *models.Objective, group *objectives.Group) int {
	if group.Hours > 0 {
		return group.Hours
	}
	return localHours(objective)
}

func courseName(tpl *models.Template, group *objectives.Group) string {
	if tpl.CourseName != "" {
		return tpl.CourseName
	}
	return group.Name
}

func toJSONMap(params map[string]string) datatypes.JSONMap {
	if len(params) == 0 {
		return nil
	}
	out := datatypes.JSONMap{}
	for key, value := range params {
		out[key] = value
	}
	return out
}
