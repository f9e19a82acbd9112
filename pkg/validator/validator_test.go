package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(loginPayload{
		Email:    "bob@example.com",
		Password: "Secret123",
	}))
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(loginPayload{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 8 characters", fields["Password"])
	assert.Contains(t, err.Error(), "field 'Email'")
}

func TestValidate_RequiredTag(t *testing.T) {
	err := Validate(loginPayload{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["Email"])
}
