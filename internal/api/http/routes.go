package httpapi

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/met-local-forecast/internal/registry"
	"github.com/i474232898/met-local-forecast/internal/setup"
	"github.com/i474232898/met-local-forecast/internal/weather"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reg *registry.Registry, flow *setup.Flow) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locs := reg.List()
		out := make([]locationView, 0, len(locs))
		for _, loc := range locs {
			out = append(out, newLocationView(loc))
		}
		return c.JSON(out)
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var in setup.Input
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		loc, err := flow.Submit(c.UserContext(), in)
		if err != nil {
			return setupError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(newLocationView(loc))
	})

	v1.Get("/locations/:id", func(c *fiber.Ctx) error {
		loc, err := lookup(reg, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(newLocationView(loc))
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		if err := reg.Remove(c.UserContext(), c.Params("id")); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no such location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/locations/:id/readings", func(c *fiber.Ctx) error {
		loc, err := lookup(reg, c.Params("id"))
		if err != nil {
			return err
		}

		resp := fiber.Map{}
		// One refresh serves every reading; on failure the readings keep
		// reporting the last successful fetch.
		if err := loc.Forecast.EnsureFresh(c.UserContext()); err != nil {
			log.Printf("WARN: refresh of %s failed: %v", loc.Entry.Name, err)
			resp["refresh_error"] = err.Error()
		}

		out := make([]readingView, 0, len(loc.Readings))
		for _, r := range loc.Readings {
			v, err := r.NativeValue()
			out = append(out, newReadingView(r, v, err))
		}
		resp["location"] = newLocationView(loc)
		resp["readings"] = out
		return c.JSON(resp)
	})

	v1.Get("/locations/:id/readings/:key", func(c *fiber.Ctx) error {
		loc, err := lookup(reg, c.Params("id"))
		if err != nil {
			return err
		}

		key := weather.MetricKey(c.Params("key"))
		for _, r := range loc.Readings {
			if r.Description().Key != key {
				continue
			}
			v, err := r.Value(c.UserContext())
			if err != nil {
				log.Printf("WARN: reading %s: %v", r.UniqueID(), err)
			}
			return c.JSON(newReadingView(r, v, err))
		}
		return fiber.NewError(fiber.StatusNotFound, "no such reading")
	})

	v1.Post("/locations/:id/refresh", func(c *fiber.Ctx) error {
		loc, err := lookup(reg, c.Params("id"))
		if err != nil {
			return err
		}
		if err := loc.Forecast.EnsureFresh(c.UserContext()); err != nil {
			log.Printf("WARN: on-demand refresh of %s failed: %v", loc.Entry.Name, err)
			return fiber.NewError(fiber.StatusBadGateway, "refresh failed")
		}
		return c.JSON(newLocationView(loc))
	})
}

func lookup(reg *registry.Registry, id string) (*registry.Location, error) {
	loc, err := reg.Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "no such location")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to look up location")
	}
	return loc, nil
}

// setupError maps a setup flow failure to a status the UI can tell apart.
func setupError(err error) error {
	code := setup.Code(err)
	switch code {
	case setup.CodeInvalidInput:
		return fiber.NewError(fiber.StatusBadRequest, code)
	case setup.CodeNotFound:
		return fiber.NewError(fiber.StatusNotFound, code)
	case setup.CodeAlreadyConfigured:
		return fiber.NewError(fiber.StatusConflict, code)
	default:
		return fiber.NewError(fiber.StatusBadGateway, code)
	}
}

// locationView is the JSON shape of a configured location.
type locationView struct {
	registry.Entry
	State     weather.State `json:"state"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
	Stats     weather.Stats `json:"stats"`
}

func newLocationView(loc *registry.Location) locationView {
	v := locationView{
		Entry: loc.Entry,
		State: loc.Forecast.State(),
		Stats: loc.Forecast.Stats(),
	}
	if ts := loc.Forecast.UpdatedAt(); !ts.IsZero() {
		v.UpdatedAt = &ts
	}
	return v
}

// readingView is the JSON shape of one reading.
type readingView struct {
	weather.Description
	UniqueID string  `json:"unique_id"`
	Value    float64 `json:"value"`
	Error    string  `json:"error,omitempty"`
}

func newReadingView(r *weather.Reading, v float64, err error) readingView {
	view := readingView{Description: r.Description(), UniqueID: r.UniqueID(), Value: v}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}
