package score

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/PulsewireAI/pulsewire-mvp/pkg/resilience"
)

// ProviderSettings selects and tunes a scoring backend.
type ProviderSettings struct {
	Provider string // local, openai, anthropic or nats
	Model    string
	BaseURL  string
	APIKey   string
	Breaker  bool
}

// ForProvider builds the configured Strategy. The connection is only
// consulted for the nats provider; the local estimator never wraps in
// a breaker.
func ForProvider(s ProviderSettings, nc *nats.Conn) (Strategy, error) {
	var strat Strategy
	switch s.Provider {
	case "", "local":
		return Local{}, nil
	case "openai":
		strat = NewOpenAI(s.BaseURL, s.APIKey, s.Model)
	case "anthropic":
		strat = NewAnthropic(s.APIKey, s.Model)
	case "nats":
		if nc == nil {
			return nil, errors.New("nats scoring provider needs a connection")
		}
		strat = NewRemote(nc)
	default:
		return nil, fmt.Errorf("unknown scoring provider %q", s.Provider)
	}
	if s.Breaker {
		strat = WithBreaker(strat, resilience.DefaultBreakerOpts)
	}
	return strat, nil
}
