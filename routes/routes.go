// routes/routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"go-storefront/controllers"
	"go-storefront/metrics"
	"go-storefront/middleware"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(
	router *mux.Router,
	userController *controllers.UserController,
	productController *controllers.ProductController,
	cartController *controllers.CartController,
	orderController *controllers.OrderController,
	reviewController *controllers.ReviewController,
	contentController *controllers.ContentController,
	storeMetrics *metrics.StoreMetrics,
) {
	// Operational endpoints
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	if storeMetrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// Auth routes. Login runs under the optional-auth middleware so an
	// anonymous session cart can be merged into the user's cart.
	router.HandleFunc("/register", userController.Register).Methods("POST")
	router.Handle("/login", middleware.OptionalAuthMiddleware(http.HandlerFunc(userController.Login))).Methods("POST")
	router.HandleFunc("/verify", userController.VerifyEmail).Methods("GET")

	// Public catalog routes
	router.HandleFunc("/products", productController.GetProducts).Methods("GET")
	router.HandleFunc("/products/slug/{slug}", productController.GetProductBySlug).Methods("GET")
	router.HandleFunc("/products/{id}", productController.GetProductByID).Methods("GET")
	router.Handle("/products/{product_id}/reviews",
		middleware.OptionalAuthMiddleware(http.HandlerFunc(reviewController.ListReviews))).Methods("GET")

	// Public content routes
	router.HandleFunc("/blog", contentController.ListBlogPosts).Methods("GET")
	router.HandleFunc("/blog/{slug}", contentController.GetBlogPost).Methods("GET")
	router.HandleFunc("/testimonials", contentController.ListTestimonials).Methods("GET")
	router.HandleFunc("/testimonials", contentController.SubmitTestimonial).Methods("POST")

	// Cart routes work for both authenticated users and anonymous
	// sessions.
	cart := router.PathPrefix("/cart").Subrouter()
	cart.Use(middleware.OptionalAuthMiddleware)
	cart.HandleFunc("", cartController.GetCart).Methods("GET")
	cart.HandleFunc("", cartController.AddToCart).Methods("POST")
	cart.HandleFunc("", cartController.ClearCart).Methods("DELETE")
	cart.HandleFunc("/coupon", cartController.ApplyCoupon).Methods("POST")
	cart.HandleFunc("/items/{product_id}", cartController.UpdateCartItem).Methods("PUT")
	cart.HandleFunc("/items/{product_id}", cartController.RemoveFromCart).Methods("DELETE")

	// Payment gateway webhook. Authenticated by the gateway's signature at
	// the edge, not by a user token.
	router.HandleFunc("/webhooks/payment", orderController.ConfirmPayment).Methods("POST")

	// Protected routes
	protected := router.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/profile", userController.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", userController.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/profile/addresses", userController.AddAddress).Methods("POST")
	protected.HandleFunc("/profile/addresses", userController.RemoveAddress).Methods("DELETE")
	protected.HandleFunc("/wishlist/{product_id}", userController.AddToWishlist).Methods("POST")
	protected.HandleFunc("/wishlist/{product_id}", userController.RemoveFromWishlist).Methods("DELETE")
	protected.HandleFunc("/orders", orderController.GetOrders).Methods("GET")
	protected.HandleFunc("/orders/{id}", orderController.GetOrder).Methods("GET")
	protected.HandleFunc("/orders/{id}/cancel", orderController.CancelOrder).Methods("POST")
	protected.HandleFunc("/products/{product_id}/reviews", reviewController.SubmitReview).Methods("POST")

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/products", productController.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{id}", productController.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", productController.DeleteProduct).Methods("DELETE")
	admin.HandleFunc("/orders/{id}/status", orderController.UpdateOrderStatus).Methods("PUT")
	admin.HandleFunc("/orders/{id}/reconcile", orderController.ReconcileOrder).Methods("POST")
	admin.HandleFunc("/reviews/{id}", reviewController.ModerateReview).Methods("PUT")
	admin.HandleFunc("/blog", contentController.CreateBlogPost).Methods("POST")
	admin.HandleFunc("/blog/{id}", contentController.UpdateBlogPost).Methods("PUT")
	admin.HandleFunc("/blog/{id}", contentController.DeleteBlogPost).Methods("DELETE")
	admin.HandleFunc("/testimonials/{id}", contentController.ModerateTestimonial).Methods("PUT")
}
