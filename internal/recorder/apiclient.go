package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// APIClient is a Poster that talks to a remote white-map API over HTTP, for
// recorder deployments running outside the service process. The caller's
// identity travels in the bearer token, so the userID argument is unused
// here.
type APIClient struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func (c *APIClient) CreateFootprint(ctx context.Context, _ string, fp Footprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(c.BaseURL + "/trips/" + fp.TripID + "/footprints")
	c.prepare(agent)
	agent.JSON(fiber.Map{
		"latitude":    fp.Latitude,
		"longitude":   fp.Longitude,
		"recorded_at": fp.RecordedAt,
	})

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if code >= 400 {
		return fmt.Errorf("footprint post: status %d", code)
	}
	return nil
}

func (c *APIClient) BulkCreateFootprints(ctx context.Context, _ string, fps []Footprint) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(fps) == 0 {
		return 0, nil
	}

	items := make([]fiber.Map, 0, len(fps))
	for _, fp := range fps {
		items = append(items, fiber.Map{
			"latitude":    fp.Latitude,
			"longitude":   fp.Longitude,
			"recorded_at": fp.RecordedAt,
		})
	}

	agent := fiber.Post(c.BaseURL + "/trips/" + fps[0].TripID + "/footprints/bulk")
	c.prepare(agent)
	agent.JSON(fiber.Map{"footprints": items})

	var result struct {
		Count int `json:"count"`
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, errs[0]
	}
	if code >= 400 {
		return 0, fmt.Errorf("bulk footprint post: status %d", code)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *APIClient) prepare(agent *fiber.Agent) {
	if c.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.Token)
	}
	if c.Timeout > 0 {
		agent.Timeout(c.Timeout)
	}
}
