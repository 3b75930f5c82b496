package handlers

import (
	"fmt"

	"booknook/internal/config"
	"booknook/internal/mailer"
	"booknook/internal/media"
	"booknook/internal/repos"
	"booknook/internal/services"
	"booknook/internal/tokens"
)

// Deps holds every handler, built over one Store.
type Deps struct {
	Auth  *services.AuthService
	Flash *Flash

	AuthHandler         *AuthHandler
	CatalogHandler      *CatalogHandler
	InventoryHandler    *InventoryHandler
	CartHandler         *CartHandler
	OrderHandler        *OrderHandler
	FulfillmentHandler  *FulfillmentHandler
	ReviewHandler       *ReviewHandler
	WishlistHandler     *WishlistHandler
	ProfileHandler      *ProfileHandler
	AdminHandler        *AdminHandler
	BookAdminHandler    *BookAdminHandler
	AnnouncementHandler *AnnouncementHandler
}

func NewDeps(store *repos.Store, cfg config.Config, pub services.Publisher, mail mailer.Mailer, m *media.Store) (*Deps, error) {
	tieBreak, err := services.ParseTieBreak(cfg.Store.DiscountTieBreak)
	if err != nil {
		return nil, err
	}
	flash, err := NewFlash(cfg.Security.FlashKey, cfg.Security.CookieSecure)
	if err != nil {
		return nil, fmt.Errorf("flash cookie: %w", err)
	}
	discounts := services.DiscountResolver{Policy: tieBreak}

	authSvc := services.NewAuthService(store, tokens.NewIssuer(cfg.Security.TokenSecret), mail, cfg.Server.BaseURL)
	catalogSvc := services.NewCatalogService(store, discounts, cfg.Store.PageSize)
	invSvc := services.NewInventoryService(store.Inventory, cfg.Store.LowStockThreshold)
	cartSvc := services.NewCartService(store, discounts, pub)
	checkoutSvc := services.NewCheckoutService(store, discounts, pub, mail)
	orderSvc := services.NewOrderService(store, pub, cfg.Store.CancelWindow)
	fulfillSvc := services.NewFulfillmentService(store, pub)
	reviewSvc := services.NewReviewService(store)
	wishSvc := services.NewWishlistService(store, discounts)
	annSvc := services.NewAnnouncementService(store, pub)
	profileSvc := services.NewProfileService(store, m)
	adminSvc := services.NewAdminService(store, authSvc, m)
	bookSvc := services.NewBookAdminService(store, m)

	return &Deps{
		Auth:  authSvc,
		Flash: flash,

		AuthHandler:         &AuthHandler{Auth: authSvc, Flash: flash, CookieSecure: cfg.Security.CookieSecure},
		CatalogHandler:      &CatalogHandler{Catalog: catalogSvc, Inv: invSvc, Flash: flash},
		InventoryHandler:    &InventoryHandler{Inv: invSvc},
		CartHandler:         &CartHandler{Cart: cartSvc, Checkout: checkoutSvc, Flash: flash},
		OrderHandler:        &OrderHandler{Orders: orderSvc, Flash: flash},
		FulfillmentHandler:  &FulfillmentHandler{Fulfillment: fulfillSvc, Flash: flash},
		ReviewHandler:       &ReviewHandler{Reviews: reviewSvc, Flash: flash},
		WishlistHandler:     &WishlistHandler{Wish: wishSvc, Flash: flash},
		ProfileHandler:      &ProfileHandler{Profiles: profileSvc, Auth: authSvc, Flash: flash},
		AdminHandler:        &AdminHandler{Admin: adminSvc, Inv: invSvc, Flash: flash},
		BookAdminHandler:    &BookAdminHandler{Books: bookSvc, Flash: flash},
		AnnouncementHandler: &AnnouncementHandler{Announcements: annSvc, Flash: flash},
	}, nil
}
