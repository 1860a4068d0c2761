package registry

import (
	"fmt"

	"menedzer-sesji/internal/models"

	"github.com/mileusna/useragent"
)

// FriendlyUserAgent renders the session's raw user-agent string as
// "<browser> on <OS>" for the panel. Empty input yields an empty string;
// unrecognized input degrades to whichever parts the parser could extract.
func FriendlyUserAgent(session *models.LoginSession) string {
	if session.UserAgent == "" {
		return ""
	}

	ua := useragent.Parse(session.UserAgent)
	switch {
	case ua.Name != "" && ua.OS != "":
		return fmt.Sprintf("%s on %s", ua.Name, ua.OS)
	case ua.Name != "":
		return ua.Name
	case ua.OS != "":
		return ua.OS
	default:
		return ""
	}
}
