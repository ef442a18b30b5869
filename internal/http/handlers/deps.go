package handlers

import (
	"shopfront/internal/apiclient"
	"shopfront/internal/config"
	applog "shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/repos"
	"shopfront/internal/schedule"
	"shopfront/internal/services"
)

type Deps struct {
	Auth     *services.AuthService
	Shelf    *services.ShelfService
	Toasts   *notify.Center
	Sched    *schedule.Scheduler
	Products *repos.ProductRepo

	AuthHandler     *AuthHandler
	CatalogHandler  *CatalogHandler
	PageHandler     *PageHandler
	CartHandler     *CartHandler
	WishlistHandler *WishlistHandler
	RegisterHandler *RegisterHandler
	ToastHandler    *ToastHandler
}

func NewDeps(slots repos.SlotStore, cfg config.Config) *Deps {
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	sched := schedule.New()
	toasts := notify.NewCenter(sched, cfg.ToastDuration)
	products := repos.NewDefaultProductRepo()

	authSvc := services.NewAuthService(api, services.NewTokenVault(slots, cfg.TokenSecret))
	shelfSvc := services.NewShelfService(slots, products)
	regSvc := services.NewRegistrationService(api, slots, sched, cfg.RegisterRedirectDelay)
	regSvc.Log = applog.Background

	catalog := &CatalogHandler{Products: products}
	return &Deps{
		Auth:     authSvc,
		Shelf:    shelfSvc,
		Toasts:   toasts,
		Sched:    sched,
		Products: products,

		AuthHandler:     &AuthHandler{Auth: authSvc, Reg: regSvc, Toasts: toasts},
		CatalogHandler:  catalog,
		PageHandler:     &PageHandler{Catalog: catalog, Auth: authSvc, Toasts: toasts},
		CartHandler:     &CartHandler{Shelf: shelfSvc, Toasts: toasts},
		WishlistHandler: &WishlistHandler{Shelf: shelfSvc, Toasts: toasts},
		RegisterHandler: &RegisterHandler{Reg: regSvc, Toasts: toasts, RedirectDelay: cfg.RegisterRedirectDelay},
		ToastHandler:    &ToastHandler{Toasts: toasts},
	}
}
