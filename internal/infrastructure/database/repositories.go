package database

import (
	"github.com/wekeepgrowing/billing-gateway/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Customer     domainRepo.CustomerRepository
	Audit        domainRepo.AuditRepository
	User         domainRepo.UserRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Customer:     repository.NewCustomerRepository(db, logger),
		Audit:        repository.NewAuditRepository(db, logger),
		User:         repository.NewUserRepository(db, logger),
	}
}
