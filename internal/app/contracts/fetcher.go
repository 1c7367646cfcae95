package contracts

import (
	"context"
	"net/http"
)

// AuthenticatedFetcher performs GET requests on behalf of the caller whose
// bearer token travels in the context.
type AuthenticatedFetcher interface {
	Fetch(ctx context.Context, uri string, header http.Header) (*http.Response, error)
}
