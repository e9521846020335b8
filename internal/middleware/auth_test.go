package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/pkg/jwtutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runRequireAdmin(t *testing.T, claims *jwtutil.UserClaims) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("logger", zap.NewNop())
	if claims != nil {
		c.Set("user", claims)
	}

	next := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, RequireAdmin()(next)(c))
	return rec
}

func TestRequireAdmin_AllowsOwnerAndAdmin(t *testing.T) {
	for _, role := range []string{"owner", "admin"} {
		t.Run(role, func(t *testing.T) {
			rec := runRequireAdmin(t, &jwtutil.UserClaims{UserID: 1, Role: role})
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRequireAdmin_RejectsMember(t *testing.T) {
	rec := runRequireAdmin(t, &jwtutil.UserClaims{UserID: 2, Role: "member"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_RejectsMissingClaims(t *testing.T) {
	rec := runRequireAdmin(t, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
