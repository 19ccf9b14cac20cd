package handler

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPermissionCode(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerPermissionCode(v))

	assert.NoError(t, v.Var("orders.refund", "permcode"))
	assert.NoError(t, v.Var("manager.manager", "permcode"))
	assert.Error(t, v.Var("Refund Orders", "permcode"))
	assert.Error(t, v.Var("orders", "permcode"))
}

func TestRegisterValidators_OnGinEngine(t *testing.T) {
	assert.NotPanics(t, registerValidators)
	assert.NotPanics(t, registerValidators, "second call is a no-op")
}
