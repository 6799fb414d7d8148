package transport

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"

	DefaultProductionURL  = "wss://your-railway-app.railway.app"
	DefaultDevelopmentURL = "ws://localhost:8765"
)

// Endpoints lists the addresses the client may talk to. Override, when set,
// wins over the environment.
type Endpoints struct {
	Production  string `mapstructure:"production"`
	Development string `mapstructure:"development"`
	Override    string `mapstructure:"url"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Production:  DefaultProductionURL,
		Development: DefaultDevelopmentURL,
	}
}

// ResolveEndpoint picks the websocket URL for env. Only "production" selects
// the production endpoint; every other value is treated as local development.
func ResolveEndpoint(env string, eps Endpoints) (string, error) {
	raw := strings.TrimSpace(eps.Override)
	if raw == "" {
		if strings.EqualFold(strings.TrimSpace(env), EnvironmentProduction) {
			raw = strings.TrimSpace(eps.Production)
			if raw == "" {
				raw = DefaultProductionURL
			}
		} else {
			raw = strings.TrimSpace(eps.Development)
			if raw == "" {
				raw = DefaultDevelopmentURL
			}
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid endpoint %q", raw)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", errors.Errorf("endpoint %q must use ws:// or wss://", raw)
	}
	if u.Host == "" {
		return "", errors.Errorf("endpoint %q has no host", raw)
	}
	return u.String(), nil
}
