package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mathinsight/core/access"
	metricsvc "github.com/trezcool/mathinsight/services/metrics"
)

// requireCapability rejects users whose role does not hold c.
func requireCapability(c access.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if err = access.Check(usr, c); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// metricsMiddleware counts requests by route template, e.g: /api/quizzes/:id.
func metricsMiddleware(m *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}
			m.ObserveRequest(ctx.Request().Method, ctx.Path(), ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

// chain returns authed followed by m, leaving authed untouched.
func chain(authed []echo.MiddlewareFunc, m ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append(append(make([]echo.MiddlewareFunc, 0, len(authed)+len(m)), authed...), m...)
}

// pathID parses the named path param as an id; malformed ids are reported as not found.
func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
