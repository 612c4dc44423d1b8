package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/pkg/jwt"
)

func TestGenerateParse(t *testing.T) {
	token, err := jwt.Generate("secreto", "u-7", "auditor", "traslados-api", 5)
	require.NoError(t, err)

	userID, role, err := jwt.Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "u-7", userID)
	assert.Equal(t, "auditor", role)
}

func TestParse_Rejects(t *testing.T) {
	token, err := jwt.Generate("secreto", "u-7", "admin", "traslados-api", 5)
	require.NoError(t, err)

	_, _, err = jwt.Parse("otro", token)
	assert.Error(t, err, "firma incorrecta")

	expired, err := jwt.Generate("secreto", "u-7", "admin", "traslados-api", -1)
	require.NoError(t, err)
	_, _, err = jwt.Parse("secreto", expired)
	assert.Error(t, err, "expirado")

	_, err = jwt.Generate("", "u", "admin", "i", 5)
	assert.Error(t, err)
}
