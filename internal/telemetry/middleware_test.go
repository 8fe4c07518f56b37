package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFiberMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	app := fiber.New()
	app.Use(FiberMiddleware())
	app.Get("/sessions/:id", func(c *fiber.Ctx) error {
		c.Locals(userIDLocal, "u1")
		assert.True(t, SpanFromContext(c).SpanContext().IsValid())
		return c.SendString("ok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusServiceUnavailable, "store down")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/sessions/abc", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	_, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "GET /sessions/:id", ok.Name())
	assert.Contains(t, ok.Attributes(), attribute.String("enduser.id", "u1"))
	assert.Contains(t, ok.Attributes(), attribute.Int("http.status_code", 200))
	assert.NotEqual(t, codes.Error, ok.Status().Code)

	failed := spans[1]
	assert.Contains(t, failed.Attributes(), attribute.Int("http.status_code", fiber.StatusServiceUnavailable))
	assert.Equal(t, codes.Error, failed.Status().Code)
}
