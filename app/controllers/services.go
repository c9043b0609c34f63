package controllers

import (
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/accounts"
	"github.com/epreuvespro/epreuvespro/internal/pkg/billing"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/dashboard"
	"github.com/epreuvespro/epreuvespro/internal/pkg/ledger"
	"github.com/epreuvespro/epreuvespro/internal/pkg/library"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
)

// Services bundles what the controllers depend on.
type Services struct {
	DB        *gorm.DB
	Repos     *repository.Repositories
	Accounts  *accounts.Service
	Ledger    *ledger.Service
	Catalog   *catalog.Service
	Library   *library.Service
	Billing   *billing.Service
	Dashboard *dashboard.Service
	Store     storage.Store
}

func NewServices(db *gorm.DB, store storage.Store, mailer mail.Mailer, baseURL string) *Services {
	factory := repository.NewFactory(db)
	repos := factory.GetRepositories()
	return &Services{
		DB:        factory.DB(),
		Repos:     repos,
		Accounts:  accounts.NewService(db, mailer, baseURL),
		Ledger:    ledger.NewService(db),
		Catalog:   catalog.NewService(repos.Catalog, repos.Library),
		Library:   library.NewService(db),
		Billing:   billing.NewServiceFromDB(db),
		Dashboard: dashboard.NewService(db),
		Store:     store,
	}
}
