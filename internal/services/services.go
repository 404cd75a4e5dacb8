// package services defines the backend and identity provider interfaces and their HTTP implementations
package services

import (
	"context"

	"github.com/desertthunder/botanica/internal/models"
)

// Backend defines the sync backend operations the client controller depends on.
//
// [BackendService] implements it over HTTP.
type Backend interface {
	// VerifyLogin exchanges an identity credential for a session.
	VerifyLogin(ctx context.Context, idToken string) (*LoginResponse, error)

	// Logout ends the session on the backend. bearer may be empty.
	Logout(ctx context.Context, bearer string) (string, error)

	// LoadMainData returns the complete main data record and the backend message.
	LoadMainData(ctx context.Context) (models.MainData, string, error)

	// SaveMainData replaces the main data record.
	SaveMainData(ctx context.Context, d models.MainData) (*StatusResponse, error)

	// ListSubcategories returns every subcategory in server order.
	ListSubcategories(ctx context.Context) (*SubcategoryListResponse, error)

	// GetSubcategory returns one subcategory.
	GetSubcategory(ctx context.Context, id models.ID) (*SubcategoryResponse, error)

	// CreateSubcategory creates a subcategory and returns it with its server-assigned id.
	CreateSubcategory(ctx context.Context, sub models.Subcategory) (*SubcategoryResponse, error)

	// UpdateSubcategory replaces a subcategory by id.
	UpdateSubcategory(ctx context.Context, id models.ID, sub models.Subcategory) (*SubcategoryResponse, error)

	// DeleteSubcategory deletes a subcategory by id.
	DeleteSubcategory(ctx context.Context, id models.ID) (*StatusResponse, error)
}

// IdentityProvider drives an OAuth2 flow that yields an identity credential.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

var (
	_ Backend          = (*BackendService)(nil)
	_ IdentityProvider = (*IdentityService)(nil)
)
