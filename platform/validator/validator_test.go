package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inviteForm struct {
	FirstName string `json:"firstName" validate:"required,notblank,max=10"`
	Email     string `json:"email" validate:"required,email"`
}

func TestStructReportsJSONNames(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(inviteForm{FirstName: "Jane", Email: "jane@example.com"}))

	err := v.Struct(inviteForm{FirstName: "   ", Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firstName")
	assert.Contains(t, err.Error(), "notblank")
	assert.Contains(t, err.Error(), "email")
}

func TestVar(t *testing.T) {
	v := New()

	assert.NoError(t, v.Var("0f8fad5b-d9cb-469f-a165-70867728950e", "required,uuid"))
	assert.Error(t, v.Var("", "required,uuid"))
	assert.Error(t, v.Var("franchise-1", "required,uuid"))
}
