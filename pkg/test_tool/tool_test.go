package testtool

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"exotoura_chat/pkg/logger"
	"exotoura_chat/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedToken(t *testing.T) {
	claims, err := token.ParseJWT(Secret, SignedToken(t, "A"))
	require.NoError(t, err)
	assert.Equal(t, "A", claims.MemberID)
}

func TestStartFiber(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	addr := StartFiber(t, app)
	code, body, errs := fiber.Get("http://" + addr + "/ping").String()
	require.Empty(t, errs)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "pong", body)
}

func TestRegisterPprof(t *testing.T) {
	logger.SetNewNop()
	mux := http.NewServeMux()
	require.True(t, RegisterPprof(mux))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
