package interfaces

import (
	"context"
	"net/http"
)

type AuthService interface {
	GetAuthenticatedClient(ctx context.Context) (*http.Client, error)
}
