package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
)

// StatusSuccess is the status value the backend returns for a successful operation.
const StatusSuccess = "success"

// LoginUser is the nested profile of the token-style login response.
type LoginUser struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// LoginResponse covers both login response shapes:
// {status, user_name, user_picture, message} and {token, user: {name, picture}}.
type LoginResponse struct {
	Status      string     `json:"status"`
	Token       string     `json:"token"`
	UserName    string     `json:"user_name"`
	UserPicture string     `json:"user_picture"`
	User        *LoginUser `json:"user"`
	Message     string     `json:"message"`
}

// Succeeded reports whether the backend accepted the credential.
func (r LoginResponse) Succeeded() bool {
	return r.Status == StatusSuccess || r.Token != ""
}

// Name returns the display name from either response shape.
func (r LoginResponse) Name() string {
	if r.UserName != "" {
		return r.UserName
	}
	if r.User != nil {
		return r.User.Name
	}
	return ""
}

// Picture returns the avatar URL from either response shape.
func (r LoginResponse) Picture() string {
	if r.UserPicture != "" {
		return r.UserPicture
	}
	if r.User != nil {
		return r.User.Picture
	}
	return ""
}

// StatusResponse is the envelope of mutation responses.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SubcategoryListResponse is returned by the list endpoint.
type SubcategoryListResponse struct {
	Status        string               `json:"status"`
	Subcategories []models.Subcategory `json:"subcategories"`
	Message       string               `json:"message"`
}

// Succeeded reports a success status.
func (r SubcategoryListResponse) Succeeded() bool { return r.Status == StatusSuccess }

// SubcategoryResponse is returned by the detail, create and update endpoints.
type SubcategoryResponse struct {
	Status      string              `json:"status"`
	Subcategory *models.Subcategory `json:"subcategory"`
	Message     string              `json:"message"`
}

// Succeeded reports a success status carrying a record.
func (r SubcategoryResponse) Succeeded() bool {
	return r.Status == StatusSuccess && r.Subcategory != nil
}

// BackendService exposes the typed backend endpoints, each one round trip through [APIService].
type BackendService struct {
	api   *APIService
	paths shared.BackendPaths
}

// NewBackendService creates a BackendService. Empty paths fall back to the defaults.
func NewBackendService(api *APIService, paths shared.BackendPaths) *BackendService {
	return &BackendService{api: api, paths: paths.WithDefaults()}
}

// VerifyLogin exchanges an identity credential for a backend session. No session is required.
func (b *BackendService) VerifyLogin(ctx context.Context, idToken string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"id_token": idToken}
	if err := b.api.DoPublic(ctx, http.MethodPost, b.paths.Login, body, &resp, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the backend that the session ended. bearer is attached when non-empty.
func (b *BackendService) Logout(ctx context.Context, bearer string) (string, error) {
	var resp StatusResponse
	if err := b.api.DoPublic(ctx, http.MethodPost, b.paths.Logout, nil, &resp, bearer); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// LoadMainData fetches the main data record. Every catalog field is present in the result.
func (b *BackendService) LoadMainData(ctx context.Context) (models.MainData, string, error) {
	var raw map[string]any
	if err := b.api.Do(ctx, http.MethodGet, b.paths.LoadData, nil, &raw); err != nil {
		return nil, "", err
	}
	msg, _ := raw["message"].(string)
	return models.NormalizeMainData(raw), msg, nil
}

// SaveMainData replaces the main data record with the full field set of d.
func (b *BackendService) SaveMainData(ctx context.Context, d models.MainData) (*StatusResponse, error) {
	var resp StatusResponse
	if err := b.api.Do(ctx, http.MethodPost, b.paths.SaveData, d.Clone(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSubcategories fetches the subcategory list in server order.
func (b *BackendService) ListSubcategories(ctx context.Context) (*SubcategoryListResponse, error) {
	var resp SubcategoryListResponse
	if err := b.api.Do(ctx, http.MethodGet, b.paths.Subcategories, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSubcategory fetches one subcategory.
func (b *BackendService) GetSubcategory(ctx context.Context, id models.ID) (*SubcategoryResponse, error) {
	var resp SubcategoryResponse
	if err := b.api.Do(ctx, http.MethodGet, b.itemPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSubcategory creates a subcategory. The server assigns the id.
func (b *BackendService) CreateSubcategory(ctx context.Context, sub models.Subcategory) (*SubcategoryResponse, error) {
	sub.ID = ""
	var resp SubcategoryResponse
	if err := b.api.Do(ctx, http.MethodPost, b.paths.Subcategories, sub, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSubcategory replaces the subcategory with the given id.
func (b *BackendService) UpdateSubcategory(ctx context.Context, id models.ID, sub models.Subcategory) (*SubcategoryResponse, error) {
	sub.ID = id
	var resp SubcategoryResponse
	if err := b.api.Do(ctx, http.MethodPut, b.itemPath(id), sub, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSubcategory deletes the subcategory with the given id.
func (b *BackendService) DeleteSubcategory(ctx context.Context, id models.ID) (*StatusResponse, error) {
	var resp StatusResponse
	if err := b.api.Do(ctx, http.MethodDelete, b.itemPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *BackendService) itemPath(id models.ID) string {
	return b.paths.Subcategories + "/" + url.PathEscape(id.String())
}
