package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	in := time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDay("10/01/2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestErrorsMatchSentinels(t *testing.T) {
	err := NotFound("student", int64(3))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "student not found: 3")

	assert.EqualError(t, &ValidationError{Field: "date", Message: "bad"}, "date: bad")
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSportsOfficer.Valid())
	assert.False(t, Role("PLAYER").Valid())
}

func TestValidate(t *testing.T) {
	type input struct {
		Email string `validate:"required,email"`
		Year  int    `validate:"min=2000"`
	}

	require.NoError(t, Validate(input{Email: "a@b.lk", Year: 2021}))

	err := Validate(input{Email: "nope", Year: 2021})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	err = Validate(input{Email: "a@b.lk", Year: 1990})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "year", ve.Field)
	assert.Equal(t, "must be at least 2000", ve.Message)
}
