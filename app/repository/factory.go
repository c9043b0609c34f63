package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory hands out one shared set of repositories per database handle.
// Services that need a transaction build their own set from the tx instead.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns the shared repositories, built on first use.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// DB returns the handle the factory was built with, for services that open transactions.
func (f *Factory) DB() *gorm.DB {
	return f.db
}
