package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,min=4,max=30,notemail"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestMessagesOnePerField(t *testing.T) {
	err := Struct(signup{})
	require.Error(t, err)

	msgs := Messages(err)
	assert.Equal(t, []string{
		"username is required",
		"email is required",
		"password is required",
	}, msgs)
}

func TestMessagesTagVariants(t *testing.T) {
	err := Struct(signup{Username: "a@b.c", Email: "nope", Password: "123"})
	require.Error(t, err)

	assert.ElementsMatch(t, []string{
		"username cannot be an email",
		"email must be a valid email",
		"password must be at least 6 characters",
	}, Messages(err))
}

func TestValidStructPasses(t *testing.T) {
	assert.NoError(t, Struct(signup{Username: "demo-user", Email: "demo@user.io", Password: "password"}))
}

func TestMessagesCustomErrors(t *testing.T) {
	assert.Equal(t, []string{"email must be unique"}, Messages(Errors{"email must be unique"}))
	assert.Nil(t, Messages(errors.New("boom")))
	assert.Nil(t, Messages(nil))
}
