package gateway

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware allows the browser clients served from origins to call
// the API with the identity headers
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", headerUserRole, headerUserID},
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	})
	return c.Handler
}
