package objectives

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/roster"

	"gorm.io/gorm"
)

// Code uniqueness policies.
const (
	CodeUniquePerCourse = "course"
	CodeUniqueGlobal    = "global"
)

// Import modes.
const (
	ImportAppend  = "append"
	ImportReplace = "replace"
)

// Service manages issuance objectives.
type Service struct {
	DB *gorm.DB

	// CodeRule selects the code-uniqueness invariant: per course or
	// global. Empty means per course.
	CodeRule string
}

// Logs carries the parallel success/error message lists returned to the
// operator.
type Logs struct {
	Logs   []string `json:"logs"`
	Errors []string `json:"errors"`
}

// AddInput is the data for one new objective.
type AddInput struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Hours int    `json:"hours"`
	Type  string `json:"type"`
}

func (s *Service) codeTaken(ctx context.Context, courseID uint, code string) (bool, error) {
	query := s.DB.WithContext(ctx).Model(&models.Objective{}).Where("code = ?", code)
	if s.CodeRule != CodeUniqueGlobal {
		query = query.Where("course_id = ?", courseID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add creates one objective after validating its fields and the code
// uniqueness policy.
func (s *Service) Add(ctx context.Context, courseID uint, in AddInput) (*models.Objective, *Logs, error) {
	logs := &Logs{}

	if in.Type != models.ObjectiveTypeLocal && in.Type != models.ObjectiveTypeRemote {
		logs.Errors = append(logs.Errors, fmt.Sprintf("objective type must be local or remote, got %q", in.Type))
	}
	if strings.TrimSpace(in.Name) == "" {
		logs.Errors = append(logs.Errors, "objective name is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		logs.Errors = append(logs.Errors, "objective code is required")
	}
	if in.Hours < 0 || in.Hours > 9999 {
		logs.Errors = append(logs.Errors, "objective hours must be a number of at most 4 digits")
	}
	if len(logs.Errors) > 0 {
		return nil, logs, nil
	}

	taken, err := s.codeTaken(ctx, courseID, strings.TrimSpace(in.Code))
	if err != nil {
		return nil, logs, err
	}
	if taken {
		logs.Errors = append(logs.Errors, fmt.Sprintf("the code %q is already in use", in.Code))
		return nil, logs, nil
	}

	objective := &models.Objective{
		CourseID: courseID,
		Name:     truncate(strings.TrimSpace(in.Name), 255),
		Code:     truncate(strings.TrimSpace(in.Code), 31),
		Hours:    in.Hours,
		Type:     in.Type,
	}
	if err := s.DB.WithContext(ctx).Create(objective).Error; err != nil {
		return nil, logs, err
	}
	logs.Logs = append(logs.Logs, fmt.Sprintf("objective %q added", objective.Name))
	return objective, logs, nil
}

// Get returns one objective by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.Objective, error) {
	var objective models.Objective
	if err := s.DB.WithContext(ctx).First(&objective, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrObjectiveNotFound
		}
		return nil, err
	}
	return &objective, nil
}

// List returns a course's objectives in creation order.
func (s *Service) List(ctx context.Context, courseID uint) ([]models.Objective, error) {
	var list []models.Objective
	err := s.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("id").Find(&list).Error
	return list, err
}

// Delete removes one objective. Existing Bulk rows keep their snapshot
// of the objective fields, so history survives the delete.
func (s *Service) Delete(ctx context.Context, id uint) (*Logs, error) {
	logs := &Logs{}
	result := s.DB.WithContext(ctx).Delete(&models.Objective{}, id)
	if result.Error != nil {
		return logs, result.Error
	}
	if result.RowsAffected == 0 {
		logs.Errors = append(logs.Errors, "the objective could not be deleted")
	} else {
		logs.Logs = append(logs.Logs, "objective deleted")
	}
	return logs, nil
}

// Import parses objective lines ("name<delim>code<delim>hours<delim>type")
// and inserts them one by one, reporting per-line errors without aborting
// the remaining lines. Replace mode first removes the course's existing
// objectives.
func (s *Service) Import(ctx context.Context, courseID uint, text, delimiterName, mode string) (*Logs, error) {
	logs := &Logs{}

	delimiter, ok := roster.Delimiters[delimiterName]
	if !ok {
		logs.Errors = append(logs.Errors, fmt.Sprintf("unknown delimiter %q", delimiterName))
		return logs, nil
	}
	if strings.TrimSpace(text) == "" {
		logs.Errors = append(logs.Errors, "the objectives list is empty")
		return logs, nil
	}

	if mode == ImportReplace {
		if err := s.DB.WithContext(ctx).Where("course_id = ?", courseID).Delete(&models.Objective{}).Error; err != nil {
			return logs, err
		}
		logs.Logs = append(logs.Logs, "existing objectives deleted")
	}

	for k, line := range strings.Split(text, "\n") {
		row := k + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(fields) != 4 {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: expected 4 fields", row))
			continue
		}

		objType := strings.TrimSpace(fields[3])
		if objType != models.ObjectiveTypeLocal && objType != models.ObjectiveTypeRemote {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: type must be local or remote", row))
			continue
		}

		rawHours := strings.TrimSpace(fields[2])
		if len(rawHours) > 4 {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: hours has more than 4 digits", row))
			continue
		}
		hours, err := strconv.Atoi(rawHours)
		if err != nil {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: hours is not a number", row))
			continue
		}

		code := truncate(strings.TrimSpace(fields[1]), 31)
		taken, err := s.codeTaken(ctx, courseID, code)
		if err != nil {
			return logs, err
		}
		if taken {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: the code %q is already in use", row, code))
			continue
		}

		objective := &models.Objective{
			CourseID: courseID,
			Name:     truncate(strings.TrimSpace(fields[0]), 255),
			Code:     code,
			Hours:    hours,
			Type:     objType,
		}
		if err := s.DB.WithContext(ctx).Create(objective).Error; err != nil {
			logs.Errors = append(logs.Errors, fmt.Sprintf("line %d: the objective could not be saved", row))
			continue
		}
		logs.Logs = append(logs.Logs, fmt.Sprintf("line %d: objective %q added", row, objective.Name))
	}

	return logs, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
