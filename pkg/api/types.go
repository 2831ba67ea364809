package api

import (
	"github.com/platinummonkey/teamgate/pkg/orgs"
)

// EnvStatus reports deployment state the UI adapts to
type EnvStatus struct {
	ExtraMessagingBackendsEnabled bool `json:"extra_messaging_backends_enabled"`
	TelegramConfigured            bool `json:"telegram_configured"`
}

// CurrentTeamResponse is the body of GET /current_team
type CurrentTeamResponse struct {
	*orgs.Organization
	EnvStatus EnvStatus `json:"env_status"`
	// MessagingBackends lists the backend keys visible for this request
	MessagingBackends []string `json:"messaging_backends"`
}
