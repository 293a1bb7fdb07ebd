package auth

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// HandleToken issues tokens to registered API clients
// @Summary Token Endpoint
// @Description Obtain an access token using the client_credentials grant. The token acts as the user owning the client.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Must be client_credentials"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string true "Client Secret"
// @Param scope formData string false "Space separated scopes, a subset of the client's scopes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	if err := o.server.HandleTokenRequest(c.Writer, c.Request); err != nil {
		log.WithError(err).Error("Failed to write token response")
	}
}
