package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freight-contracts/internal/model"
)

func TestParseRoundTrip(t *testing.T) {
	parser := NewParser("secret")
	principal := model.Principal{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
		Role:      model.RoleForwarderAdmin,
	}

	token, err := parser.Issue(principal, time.Hour)
	require.NoError(t, err)

	got, err := parser.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := NewParser("other").Issue(model.Principal{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
		Role:      model.RoleCustomerAdmin,
	}, time.Hour)
	require.NoError(t, err)

	_, err = NewParser("secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	parser := NewParser("secret")
	token, err := parser.Issue(model.Principal{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
		Role:      model.RoleCustomerAdmin,
	}, -time.Minute)
	require.NoError(t, err)

	_, err = parser.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresCompany(t *testing.T) {
	claims := Claims{
		UserID: uuid.NewString(),
		Role:   model.RoleCustomerAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewParser("secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
