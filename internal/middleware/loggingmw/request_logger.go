package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mwegrzyn/movieclub/internal/logging"
)

// RequestLogger attaches a request-scoped slog logger to the context and
// logs every completed request at a level matching its status class.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}

			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			status := c.Response().Status
			attrs := []any{
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", c.Response().Size,
			}

			switch {
			case status >= 500:
				if err != nil {
					attrs = append(attrs, "error", err.Error())
				}
				l.Error("request completed", attrs...)
			case status >= 400:
				l.Warn("request completed", attrs...)
			default:
				l.Info("request completed", attrs...)
			}
			return nil
		}
	}
}
