package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

// UserController handles user-related requests
type UserController struct {
	Collection   *mongo.Collection
	EmailService *utils.EmailService
	carts        *services.CartService
}

// NewUserController creates a new UserController with EmailService
func NewUserController(db *mongo.Database, emailService *utils.EmailService, carts *services.CartService) *UserController {
	return &UserController{
		Collection:   db.Collection("users"),
		EmailService: emailService,
		carts:        carts,
	}
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var user models.User
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if user.Email == "" || user.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	// Check if user already exists
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	count, err := uc.Collection.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		http.Error(w, "User already exists", http.StatusBadRequest)
		return
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	user.ID = primitive.NewObjectID()
	user.Password = string(hashedPassword)
	user.Role = "user" // Default role
	user.IsVerified = false

	// Generate verification token
	verificationToken, err := utils.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		http.Error(w, "Error generating verification token", http.StatusInternalServerError)
		return
	}
	user.VerificationToken = verificationToken

	// Insert the user into the database
	_, err = uc.Collection.InsertOne(ctx, user)
	if err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}

	// Send verification email
	if uc.EmailService != nil {
		if err := uc.EmailService.SendVerificationEmail(user.Email, verificationToken); err != nil {
			log.Printf("Failed to send verification email to %s: %v", user.Email, err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully. Please check your email to verify your account.",
	})
}

// VerifyEmail handles email verification
func (uc *UserController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Verification token missing", http.StatusBadRequest)
		return
	}

	if _, err := utils.ParseJWT(token); err != nil {
		http.Error(w, "Invalid token", http.StatusBadRequest)
		return
	}

	// Find the user with the verification token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var user models.User
	err := uc.Collection.FindOne(ctx, bson.M{"verification_token": token}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found or already verified", http.StatusBadRequest)
		return
	}

	// Update the user's verification status
	_, err = uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{
			"is_verified":        true,
			"verification_token": "",
		},
	})
	if err != nil {
		http.Error(w, "Error updating user verification status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully. You can now log in.",
	})
}

// Login handles user authentication. Any cart built anonymously on this
// session is folded into the user's cart on success.
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&creds)
	if err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	// Find the user in the database
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var user models.User
	err = uc.Collection.FindOne(ctx, bson.M{"email": creds.Email}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	// Check if email is verified
	if !user.IsVerified {
		http.Error(w, "Email not verified", http.StatusUnauthorized)
		return
	}

	// Compare the hashed password
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password))
	if err != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	// Generate JWT token
	token, err := utils.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	// Fold the anonymous session cart, if any, into the user's cart.
	if sessionID, ok := middleware.SessionFrom(r.Context()); ok && uc.carts != nil {
		if err := uc.carts.MergeGuestCart(r.Context(), sessionID, user.ID); err != nil {
			log.Printf("Failed to merge guest cart for %s: %v", user.Email, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetProfile retrieves the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	user.Password = ""
	user.VerificationToken = ""
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's name
func (uc *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{"name": payload.Name},
	})
	if err != nil {
		http.Error(w, "Error updating profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

// AddAddress appends a delivery address to the user's address book
func (uc *UserController) AddAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	var address models.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if address.AddressLine1 == "" || address.City == "" || address.Country == "" {
		http.Error(w, "Address line, city and country are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$push": bson.M{"addresses": address},
	})
	if err != nil {
		http.Error(w, "Error saving address", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, address)
}

// RemoveAddress removes the address at the given index from the address book
func (uc *UserController) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if payload.Index < 0 || payload.Index >= len(user.Addresses) {
		http.Error(w, "Address not found", http.StatusNotFound)
		return
	}

	addresses := append(user.Addresses[:payload.Index], user.Addresses[payload.Index+1:]...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{"addresses": addresses},
	})
	if err != nil {
		http.Error(w, "Error removing address", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Address removed"})
}

// AddToWishlist adds a product to the user's wishlist
func (uc *UserController) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$addToSet": bson.M{"wishlist": productID},
	})
	if err != nil {
		http.Error(w, "Error updating wishlist", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product added to wishlist"})
}

// RemoveFromWishlist removes a product from the user's wishlist
func (uc *UserController) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := uc.currentUser(w, r)
	if !ok {
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = uc.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$pull": bson.M{"wishlist": productID},
	})
	if err != nil {
		http.Error(w, "Error updating wishlist", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product removed from wishlist"})
}

// currentUser loads the authenticated user's document. Writes the error
// response itself when the lookup fails.
func (uc *UserController) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "Could not parse user from context", http.StatusUnauthorized)
		return nil, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Could not parse user from context", http.StatusUnauthorized)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var user models.User
	if err := uc.Collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return nil, false
	}
	return &user, true
}
