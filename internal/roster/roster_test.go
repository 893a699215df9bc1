package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocal_TabDelimited(t *testing.T) {
	text := "username\tfirstname\tlastname\temail\n" +
		"ana.perez\tAna\tPérez\tana@example.org\n" +
		"jlopez\tJuan\tLópez\tjuan@example.org\n"

	res := ParseLocal(text, "tab", nil)
	require.Empty(t, res.Errors)
	require.Len(t, res.Users, 2)

	assert.Equal(t, "ana.perez", res.Users[0].Username)
	assert.Equal(t, "Ana", res.Users[0].Field("firstname"))
	assert.Equal(t, "Pérez", res.Users[0].Field("lastname"))
	assert.Equal(t, "ana@example.org", res.Users[0].Field("email"))
}

func TestParseLocal_UnknownDelimiter(t *testing.T) {
	res := ParseLocal("username\nana", "pipe", nil)
	require.Len(t, res.Errors, 1)
	assert.Empty(t, res.Users)
}

func TestParseLocal_MissingUsernameColumn(t *testing.T) {
	res := ParseLocal("firstname,lastname\nAna,Pérez", "comma", nil)
	require.NotEmpty(t, res.Errors)
	assert.Empty(t, res.Users)
}

func TestParseLocal_ShortRowReportedAndSkipped(t *testing.T) {
	text := "username,firstname,lastname\nana,Ana,Pérez\nbroken\njlopez,Juan,López"
	res := ParseLocal(text, "comma", nil)

	require.Len(t, res.Users, 2)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "row 3")
}

func TestParseLocal_ShortRowWithUnrecognizedColumn(t *testing.T) {
	// "notacolumn" is not recognized, but "city" after it still sits at
	// position 2; a two-field row must be rejected, not read past its end.
	text := "username\tnotacolumn\tcity\nana\tx\nbob\tx\tMadrid"
	res := ParseLocal(text, "tab", nil)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "row 2")
	require.Len(t, res.Users, 1)
	assert.Equal(t, "bob", res.Users[0].Username)
	assert.Equal(t, "Madrid", res.Users[0].Field("city"))
}

func TestParseLocal_EmptyLinesSkipped(t *testing.T) {
	text := "username,email\n\nana,ana@example.org\n\n"
	res := ParseLocal(text, "comma", nil)
	require.Empty(t, res.Errors)
	require.Len(t, res.Users, 1)
}

func TestParseLocal_InvalidEmailBlanked(t *testing.T) {
	text := "username,email\nana,not-an-email"
	res := ParseLocal(text, "comma", nil)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "", res.Users[0].Field("email"))
}

func TestParseLocal_ProfileFields(t *testing.T) {
	text := "username,profile_dni,profile_unknown\nana,12345678,x"
	res := ParseLocal(text, "comma", []string{"dni"})

	require.Len(t, res.Users, 1)
	assert.Equal(t, "12345678", res.Users[0].Profile["profile_dni"])
	_, ok := res.Users[0].Profile["profile_unknown"]
	assert.False(t, ok, "unknown profile columns are not recognized")
}

func TestFromMap(t *testing.T) {
	user, ok := FromMap(map[string]any{
		"username":    "ana.perez",
		"firstname":   "Ana",
		"email":       "Ana@Example.org",
		"profile_dni": "12345678",
		"ignored":     "x",
	})
	require.True(t, ok)
	assert.Equal(t, "ana.perez", user.Username)
	assert.Equal(t, "Ana", user.Field("firstname"))
	assert.Equal(t, "ana@example.org", user.Field("email"))
	assert.Equal(t, "12345678", user.Profile["profile_dni"])
	assert.Equal(t, "", user.Field("ignored"))
}

func TestFromMap_MissingUsername(t *testing.T) {
	_, ok := FromMap(map[string]any{"firstname": "Ana"})
	assert.False(t, ok)

	_, ok = FromMap(map[string]any{"username": "  "})
	assert.False(t, ok)
}

func TestParseCustomParams(t *testing.T) {
	params := ParseCustomParams("PLACE=Madrid\n\nSIGNER=<b>Dr. Ruiz</b>\nPLACE=Sevilla")
	assert.Equal(t, "Sevilla", params["PLACE"], "last value wins")
	assert.Equal(t, "Dr. Ruiz", params["SIGNER"], "markup stripped")
	assert.Len(t, params, 2)
}
