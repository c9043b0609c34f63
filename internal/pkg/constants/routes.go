package constants

// Route constants shared by controllers, middlewares and templates
const (
	PublicRoute       = "/"
	LoginRoute        = "/login"
	DashboardRoute    = "/dashboard"
	SubscriptionRoute = "/subscription"
	PapersRoute       = "/papers"
	LibraryRoute      = "/library"
	ProfileRoute      = "/user/profile"
	// MediaRoute serves public images (avatars, covers) from the blob store.
	MediaRoute = "/media"
)
