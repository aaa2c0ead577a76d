package middleware

import (
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := req.Context()
			ctx = appcontext.SetRequestID(ctx, requestID)
			ctx = appcontext.SetMethod(ctx, req.Method)
			ctx = appcontext.SetRoute(ctx, req.URL.Path)
			ctx = appcontext.SetRemoteIP(ctx, c.RealIP())
			ctx = appcontext.SetReferer(ctx, req.Referer())

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
