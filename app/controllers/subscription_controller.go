package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/billing"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// SubscriptionController renders the plan comparison
type SubscriptionController struct {
	svc *Services
}

func NewSubscriptionController(svc *Services) *SubscriptionController {
	return &SubscriptionController{svc: svc}
}

// HandleSubscription is public; logged-in users also see their current plan.
func (sc *SubscriptionController) HandleSubscription(c *fiber.Ctx) error {
	data := fiber.Map{"Offers": billing.Offers}
	if userID := usercontext.GetUserID(c); userID != 0 {
		cmp, err := sc.svc.Billing.Compare(c.UserContext(), userID)
		if err != nil {
			return internalError(c, "plan comparison", err)
		}
		data["Comparison"] = cmp
	}
	return viewmodel.Render(c, "subscription/index", "Abonnements", data)
}
