// Package adapters is the factory for built-in platform adapters: given a
// platform name from a CreateIntegration request, it returns a fresh,
// un-initialized Adapter instance ready for Init(cfg) (spec §4.6 "a new
// integration can be wired up from config alone").
package adapters

import (
	"github.com/secureyeoman/secureyeoman/internal/integration"
	"github.com/secureyeoman/secureyeoman/internal/integration/adapters/generic"
	"github.com/secureyeoman/secureyeoman/internal/integration/adapters/github"
)

// New returns a fresh adapter for platform, or false if platform isn't a
// built-in. "generic_hex"/"generic_base64"/"generic_shared_secret" select
// the generic adapter's signature scheme.
func New(platform string) (integration.Adapter, bool) {
	switch platform {
	case "github":
		return github.New(), true
	case "generic_hex":
		return generic.New(generic.SchemeHexHMAC), true
	case "generic_base64":
		return generic.New(generic.SchemeBase64HMAC), true
	case "generic_shared_secret":
		return generic.New(generic.SchemeSharedSecret), true
	default:
		return nil, false
	}
}
