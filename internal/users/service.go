// Package users reconciles external roster rows against local accounts:
// match by username, fill only empty fields on existing accounts, and
// create missing accounts with a placeholder credential.
package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"bulkcert-backend/internal/emails"
	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pkg/validation"
	"bulkcert-backend/internal/roster"
)

// placeholderPassword is the credential set on accounts created during
// reconciliation. Users are expected to reset it before first login.
const placeholderPassword = "bulkcertification"

// Service reconciles roster rows with the users table.
type Service struct {
	DB   *gorm.DB
	Mail emails.Sender

	// DefaultEmail is the template for accounts whose roster row has no
	// usable email. Placeholders: {index}, {username}, {firstname},
	// {lastname}. The literal value "creator" uses the issuing
	// operator's email instead.
	DefaultEmail string
}

// ReconcileInput is one reconciliation run.
type ReconcileInput struct {
	Users []roster.ExternalUser

	// CreatorEmail is the issuing operator's email, used when
	// DefaultEmail is "creator".
	CreatorEmail string

	// Notify sends a new-account email to users created with a valid
	// address.
	Notify bool
}

// ReconciledUser is the outcome for one roster row, in roster order. A
// failed row carries Err and a nil User; it never aborts the run.
type ReconciledUser struct {
	User    *models.User
	Created bool
	Err     string
}

// Result carries the per-row outcomes plus the operator-facing logs.
type Result struct {
	Users  []ReconciledUser
	Logs   []string
	Errors []string
}

// Reconcile processes the roster rows one by one. Existing accounts are
// matched by username; soft-deleted matches are reactivated. Only empty
// fields on an existing account take values from the roster, so locally
// maintained data is never overwritten.
func (s *Service) Reconcile(ctx context.Context, in ReconcileInput) *Result {
	res := &Result{}

	nextIndex := s.nextIndex(ctx)

	for _, ext := range in.Users {
		username := validation.CleanUsername(ext.Username)
		if username == "" {
			res.Users = append(res.Users, ReconciledUser{Err: fmt.Sprintf("invalid username %q", ext.Username)})
			res.Errors = append(res.Errors, fmt.Sprintf("invalid username %q", ext.Username))
			continue
		}

		var user models.User
		err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
		switch {
		case err == nil:
			if updateErr := s.update(ctx, &user, ext); updateErr != nil {
				msg := fmt.Sprintf("user %q could not be updated", username)
				res.Users = append(res.Users, ReconciledUser{Err: msg})
				res.Errors = append(res.Errors, msg)
				continue
			}
			res.Users = append(res.Users, ReconciledUser{User: &user})
			res.Logs = append(res.Logs, fmt.Sprintf("user %q found", username))
		case err == gorm.ErrRecordNotFound:
			created, createErr := s.create(ctx, username, ext, nextIndex, in.CreatorEmail)
			if createErr != nil {
				msg := fmt.Sprintf("user %q could not be created: %v", username, createErr)
				res.Users = append(res.Users, ReconciledUser{Err: msg})
				res.Errors = append(res.Errors, msg)
				continue
			}
			nextIndex++
			if in.Notify && s.Mail != nil && validation.IsValidEmail(created.Email) {
				if mailErr := s.Mail.SendNewAccount(ctx, created.Email, created.Username); mailErr != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("new-account email to %q failed", created.Email))
				}
			}
			res.Users = append(res.Users, ReconciledUser{User: created, Created: true})
			res.Logs = append(res.Logs, fmt.Sprintf("user %q created", username))
		default:
			msg := fmt.Sprintf("user %q lookup failed", username)
			res.Users = append(res.Users, ReconciledUser{Err: msg})
			res.Errors = append(res.Errors, msg)
		}
	}

	return res
}

// update fills only the empty fields of an existing account from the
// roster row and reactivates soft-deleted accounts.
func (s *Service) update(ctx context.Context, user *models.User, ext roster.ExternalUser) error {
	changed := false

	for _, field := range models.OptionalFields {
		value := strings.TrimSpace(ext.Field(field))
		if value == "" || user.Field(field) != "" {
			continue
		}
		if field == "email" {
			value = validation.CleanEmail(value)
			if value == "" {
				continue
			}
		}
		user.SetField(field, value)
		changed = true
	}

	if user.ProfileFields == nil {
		user.ProfileFields = datatypes.JSONMap{}
	}
	for key, value := range ext.Profile {
		if value == "" {
			continue
		}
		if existing, ok := user.ProfileFields[key]; ok && existing != "" {
			continue
		}
		user.ProfileFields[key] = value
		changed = true
	}

	if user.Deleted {
		user.Deleted = false
		changed = true
	}

	if !changed {
		return nil
	}
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) create(ctx context.Context, username string, ext roster.ExternalUser, index uint, creatorEmail string) (*models.User, error) {
	if strings.TrimSpace(ext.Field("firstname")) == "" || strings.TrimSpace(ext.Field("lastname")) == "" {
		return nil, ErrNameMissing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(placeholderPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Auth:         "manual",
		PasswordHash: string(hash),
		Confirmed:    true,
	}

	for _, field := range models.OptionalFields {
		value := strings.TrimSpace(ext.Field(field))
		if field == "email" {
			value = validation.CleanEmail(value)
		}
		if value != "" {
			user.SetField(field, value)
		}
	}

	if user.Email == "" {
		user.Email = s.defaultEmail(user, index, creatorEmail)
	}
	if user.Email == "" {
		return nil, ErrEmailMissing
	}

	if len(ext.Profile) > 0 {
		user.ProfileFields = datatypes.JSONMap{}
		for key, value := range ext.Profile {
			if value != "" {
				user.ProfileFields[key] = value
			}
		}
	}

	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// defaultEmail expands the configured template for accounts without an
// email of their own. An expansion that is not a valid address leaves
// the account without one.
func (s *Service) defaultEmail(user *models.User, index uint, creatorEmail string) string {
	template := strings.TrimSpace(s.DefaultEmail)
	if template == "" {
		return ""
	}
	if template == "creator" {
		return validation.CleanEmail(creatorEmail)
	}

	replacer := strings.NewReplacer(
		"{index}", fmt.Sprintf("%d", index),
		"{username}", user.Username,
		"{firstname}", strings.ToLower(user.Firstname),
		"{lastname}", strings.ToLower(user.Lastname),
	)
	return validation.CleanEmail(replacer.Replace(template))
}

// nextIndex is the {index} seed for this run: one past the highest user
// id, incremented per created account.
func (s *Service) nextIndex(ctx context.Context) uint {
	var maxID uint
	row := s.DB.WithContext(ctx).Model(&models.User{}).Select("COALESCE(MAX(id), 0)").Row()
	if row != nil {
		_ = row.Scan(&maxID)
	}
	return maxID + 1
}

// GetByUsername returns one active account.
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ? AND deleted = ?", username, false).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
