package users

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/roster"
)

func setupUsersTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return &Service{DB: db}
}

func extUser(username string, fields map[string]string) roster.ExternalUser {
	if fields == nil {
		fields = map[string]string{}
	}
	return roster.ExternalUser{Username: username, Fields: fields, Profile: map[string]string{}}
}

// namedUser is a roster row complete enough to create an account from.
func namedUser(username, first, last string) roster.ExternalUser {
	return extUser(username, map[string]string{
		"firstname": first,
		"lastname":  last,
		"email":     username + "@example.org",
	})
}

func TestReconcile_CreatesMissingUser(t *testing.T) {
	svc := setupUsersTest(t)

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{
			extUser("ana.perez", map[string]string{"firstname": "Ana", "lastname": "Pérez", "email": "ana@example.org"}),
		},
	})

	require.Len(t, res.Users, 1)
	require.Empty(t, res.Errors)
	user := res.Users[0].User
	require.NotNil(t, user)
	assert.True(t, res.Users[0].Created)
	assert.Equal(t, "ana.perez", user.Username)
	assert.Equal(t, "Ana", user.Firstname)
	assert.Equal(t, "ana@example.org", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.True(t, user.Confirmed)
}

func TestReconcile_FillsOnlyEmptyFields(t *testing.T) {
	svc := setupUsersTest(t)
	require.NoError(t, svc.DB.Create(&models.User{
		Username: "ana.perez",
		City:     "Madrid",
	}).Error)

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{
			extUser("ana.perez", map[string]string{"city": "Sevilla", "department": "Sales"}),
		},
	})

	require.Len(t, res.Users, 1)
	user := res.Users[0].User
	assert.False(t, res.Users[0].Created)
	assert.Equal(t, "Madrid", user.City, "local value is protected")
	assert.Equal(t, "Sales", user.Department, "empty field is filled")

	var stored models.User
	require.NoError(t, svc.DB.Where("username = ?", "ana.perez").First(&stored).Error)
	assert.Equal(t, "Madrid", stored.City)
	assert.Equal(t, "Sales", stored.Department)
}

func TestReconcile_ReactivatesDeletedUser(t *testing.T) {
	svc := setupUsersTest(t)
	require.NoError(t, svc.DB.Create(&models.User{Username: "ana.perez", Deleted: true}).Error)

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{extUser("ana.perez", nil)},
	})

	require.Len(t, res.Users, 1)
	assert.False(t, res.Users[0].User.Deleted)
}

func TestReconcile_InvalidUsernameIsolated(t *testing.T) {
	svc := setupUsersTest(t)

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{
			namedUser("ana.perez", "Ana", "Pérez"),
			extUser("   ", nil),
			namedUser("jlopez", "Juan", "López"),
		},
	})

	require.Len(t, res.Users, 3)
	assert.NotNil(t, res.Users[0].User)
	assert.Nil(t, res.Users[1].User)
	assert.NotEmpty(t, res.Users[1].Err)
	assert.NotNil(t, res.Users[2].User, "a bad row does not stop the rest")
}

func TestReconcile_DefaultEmailTemplate(t *testing.T) {
	svc := setupUsersTest(t)
	svc.DefaultEmail = "{username}@certs.example.org"

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{extUser("ana.perez", map[string]string{"firstname": "Ana", "lastname": "Pérez"})},
	})

	require.Len(t, res.Users, 1)
	assert.Equal(t, "ana.perez@certs.example.org", res.Users[0].User.Email)
}

func TestReconcile_DefaultEmailCreator(t *testing.T) {
	svc := setupUsersTest(t)
	svc.DefaultEmail = "creator"

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users:        []roster.ExternalUser{extUser("ana.perez", map[string]string{"firstname": "Ana", "lastname": "Pérez"})},
		CreatorEmail: "admin@example.org",
	})

	require.Len(t, res.Users, 1)
	assert.Equal(t, "admin@example.org", res.Users[0].User.Email)
}

func TestReconcile_MissingNameFailsRow(t *testing.T) {
	svc := setupUsersTest(t)
	svc.DefaultEmail = "{username}@certs.example.org"

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{extUser("solo", nil)},
	})

	require.Len(t, res.Users, 1)
	assert.Nil(t, res.Users[0].User)
	assert.Contains(t, res.Users[0].Err, "could not be created")
	require.Len(t, res.Errors, 1)

	var count int64
	require.NoError(t, svc.DB.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "no half-filled account is inserted")
}

func TestReconcile_UnresolvableEmailFailsRow(t *testing.T) {
	svc := setupUsersTest(t)

	res := svc.Reconcile(context.Background(), ReconcileInput{
		Users: []roster.ExternalUser{extUser("ana.perez", map[string]string{"firstname": "Ana", "lastname": "Pérez"})},
	})

	require.Len(t, res.Users, 1)
	assert.Nil(t, res.Users[0].User)
	require.Len(t, res.Errors, 1)

	var count int64
	require.NoError(t, svc.DB.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestReconcile_ProfileFields(t *testing.T) {
	svc := setupUsersTest(t)

	ext := namedUser("ana.perez", "Ana", "Pérez")
	ext.Profile["profile_dni"] = "12345678"

	res := svc.Reconcile(context.Background(), ReconcileInput{Users: []roster.ExternalUser{ext}})
	require.Len(t, res.Users, 1)
	assert.Equal(t, "12345678", res.Users[0].User.ProfileFields["profile_dni"])
}

func TestGetByUsername(t *testing.T) {
	svc := setupUsersTest(t)
	require.NoError(t, svc.DB.Create(&models.User{Username: "ana.perez"}).Error)
	require.NoError(t, svc.DB.Create(&models.User{Username: "gone", Deleted: true}).Error)

	user, err := svc.GetByUsername(context.Background(), "ana.perez")
	require.NoError(t, err)
	assert.Equal(t, "ana.perez", user.Username)

	_, err = svc.GetByUsername(context.Background(), "gone")
	assert.Equal(t, ErrUserNotFound, err)

	_, err = svc.GetByUsername(context.Background(), "nobody")
	assert.Equal(t, ErrUserNotFound, err)
}
