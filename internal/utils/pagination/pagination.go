package pagination

import (
	"strconv"

	"domus/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// ParseFromRequest reads page/limit/sortBy/sortOrder query parameters.
func ParseFromRequest(c *fiber.Ctx) repositories.ListOptions {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	return repositories.ListOptions{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}.Normalize()
}
