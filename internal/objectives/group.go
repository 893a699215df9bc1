package objectives

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/roster"
)

// Group is the ephemeral roster snapshot resolved from an objective for
// one issuance run. For local objectives it is a stub whose users are
// filled later from pasted text; for remote objectives it comes from
// the web-service lookup.
type Group struct {
	Name      string
	Code      string
	GroupCode string
	Hours     int
	EndDate   time.Time // zero if unknown
	Users     []roster.ExternalUser
}

// GroupResolver fetches group rosters for remote objectives.
type GroupResolver struct {
	URI      string
	User     string
	Password string
	Client   *http.Client
}

// Accepted layouts for a non-numeric enddate value.
var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Resolve builds the group for an objective. Remote objectives hit the
// configured endpoint with a bounded timeout and no retries; any
// transport or shape problem fails the whole resolution.
func (r *GroupResolver) Resolve(ctx context.Context, objective *models.Objective) (*Group, error) {
	group := &Group{
		Name:      objective.Name,
		Code:      objective.Code,
		GroupCode: objective.Code,
		Hours:     objective.Hours,
	}

	if objective.Type != models.ObjectiveTypeRemote {
		return group, nil
	}

	if r.URI == "" {
		return nil, ErrEndpointNotConfigured
	}
	// Resolvers are shared between requests, so the fallback client is a
	// local, not a field write.
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	endpoint, err := url.Parse(r.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointNotConfigured, err)
	}
	query := endpoint.Query()
	query.Set("code", objective.Code)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	if r.User != "" && r.Password != "" {
		req.SetBasicAuth(r.User, r.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGroupNotFound, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(body) == 0 {
		return nil, ErrGroupNotFound
	}

	var payload struct {
		Name      string           `json:"name"`
		GroupCode string           `json:"groupcode"`
		Hours     json.Number      `json:"hours"`
		EndDate   json.Number      `json:"enddate"`
		Users     []map[string]any `json:"users"`
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, ErrMalformedResponse
	}
	if len(payload.Users) == 0 {
		return nil, ErrNoUsers
	}

	if name := strings.TrimSpace(payload.Name); name != "" {
		group.Name = name
	}
	if code := strings.TrimSpace(payload.GroupCode); code != "" {
		group.GroupCode = code
	}
	if hours, err := payload.Hours.Int64(); err == nil && hours > 0 {
		group.Hours = int(hours)
	}
	group.EndDate = parseEndDate(payload.EndDate.String())

	// Non-conforming users are skipped silently; the roster layer
	// re-validates what remains.
	for _, raw := range payload.Users {
		if user, ok := roster.FromMap(raw); ok {
			group.Users = append(group.Users, user)
		}
	}
	if len(group.Users) == 0 {
		return nil, ErrNoUsers
	}

	return group, nil
}

func parseEndDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if epoch <= 0 {
			return time.Time{}
		}
		return time.Unix(epoch, 0)
	}
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
