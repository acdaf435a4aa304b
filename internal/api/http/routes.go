package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-alert-notifier/internal/alerts"
	"github.com/i474232898/weather-alert-notifier/internal/store"
	"github.com/i474232898/weather-alert-notifier/internal/weather"
)

const serviceName = "weather-alert-notifier"

var validate = validator.New()

// AlertRunner triggers alert runs and exposes the active thresholds.
type AlertRunner interface {
	RunOnce(ctx context.Context) (alerts.RunSummary, error)
	Thresholds() alerts.Thresholds
}

// RunHistory answers queries over past run summaries.
type RunHistory interface {
	Latest() (alerts.RunSummary, error)
	Range(from, to time.Time) ([]alerts.RunSummary, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. A nil metrics
// handler leaves /metrics unregistered.
func RegisterRoutes(app *fiber.App, runner AlertRunner, history RunHistory, metrics http.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": serviceName})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := app.Group("/api/v1/alerts")

	v1.Post("/run", func(c *fiber.Ctx) error {
		summary, err := runner.RunOnce(c.UserContext())
		switch {
		case errors.Is(err, alerts.ErrRunInProgress):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, alerts.ErrDirectory):
			return c.Status(fiber.StatusBadGateway).JSON(summary)
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "alert run failed")
		}
		return c.JSON(summary)
	})

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		summary, err := history.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no alert runs recorded yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest run")
		}
		return c.JSON(summary)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := history.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no alert runs in requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch run history")
		}

		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": runs,
		})
	})

	v1.Post("/evaluate", func(c *fiber.Ctx) error {
		var req evaluateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		current := weather.NewSnapshot(*req.Latitude, *req.Longitude, *req.Code, time.Now())
		forecast := weather.ForecastSeries{Hours: len(req.Precipitation), Precipitation: req.Precipitation}

		return c.JSON(fiber.Map{
			"current":  current,
			"decision": alerts.Evaluate(current, forecast, runner.Thresholds()),
		})
	})
}

// evaluateRequest is a dry-run input for the evaluate endpoint.
type evaluateRequest struct {
	Code          *int       `json:"code" validate:"required,gte=0"`
	Latitude      *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude     *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Precipitation []*float64 `json:"precipitation" validate:"max=384"`
}

// rangeQuery holds query parameters for the run history endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
