package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"go.uber.org/zap"
)

type PlanCatalogue interface {
	ListProductsForCheckout(ctx context.Context) []entity.Plan
}

type PlansHandler struct {
	logger  *zap.Logger
	catalog PlanCatalogue
}

func NewPlansHandler(logger *zap.Logger, catalog PlanCatalogue) *PlansHandler {
	return &PlansHandler{logger: logger, catalog: catalog}
}

// GetPlans lists purchasable plans. An unreachable provider yields the last
// known catalogue, or an empty list.
func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans := h.catalog.ListProductsForCheckout(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"plans": plans})
}
