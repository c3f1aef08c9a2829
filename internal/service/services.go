package service

import (
	"github.com/dom/foodorder-backend/internal/config"
	"github.com/dom/foodorder-backend/internal/repository"
	"github.com/dom/foodorder-backend/internal/webpay"
)

type Services struct {
	Auth    *AuthService
	Catalog *CatalogService
	Payment *PaymentService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, notifier TransactionNotifier) *Services {
	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	return &Services{
		Auth:    NewAuthService(repos.User, tokens, NewGoogleProvider(cfg.Google)),
		Catalog: NewCatalogService(cfg),
		Payment: NewPaymentService(
			webpay.NewClient(cfg.WebPay),
			repos.Transaction,
			notifier,
			cfg.PaymentReturnURL(),
			cfg.FrontendURL,
		),
	}
}
