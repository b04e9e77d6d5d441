package mediajob

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Provisioner obtains named configurations idempotently: create once, reuse
// thereafter. It is safe for concurrent use; concurrent first uses of the
// same name share a single create-or-lookup round trip.
type Provisioner struct {
	api   ConfigurationAPI
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]ConfigurationRef
}

func NewProvisioner(api ConfigurationAPI) *Provisioner {
	return &Provisioner{
		api:   api,
		cache: make(map[string]ConfigurationRef),
	}
}

// EnsureConfiguration returns the reference of the configuration called
// name, creating it with spec if it does not exist yet. When creation
// reports a name conflict the existing configuration is looked up by exact
// name; a conflict with no matching name is a *ProvisioningError.
//
// An existing configuration is reused as-is even if its capabilities differ
// from spec.
func (p *Provisioner) EnsureConfiguration(ctx context.Context, name string, spec CapabilitySpec) (ConfigurationRef, error) {
	if name == "" {
		return "", &ProvisioningError{Name: name, Msg: "configuration name is required"}
	}
	if ref, ok := p.cached(name); ok {
		return ref, nil
	}

	ch := p.group.DoChan(name, func() (any, error) {
		if ref, ok := p.cached(name); ok {
			return ref, nil
		}
		// Detached from the first caller's cancellation so that joined
		// callers are not failed by someone else's context.
		ref, err := p.createOrLookup(context.WithoutCancel(ctx), name, spec)
		if err != nil {
			return ConfigurationRef(""), err
		}
		p.mu.Lock()
		p.cache[name] = ref
		p.mu.Unlock()
		return ref, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			log.Debug().Str("configuration", name).Msg("Joined in-flight configuration provisioning")
		}
		return res.Val.(ConfigurationRef), nil
	}
}

func (p *Provisioner) cached(name string) (ConfigurationRef, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ref, ok := p.cache[name]
	return ref, ok
}

func (p *Provisioner) createOrLookup(ctx context.Context, name string, spec CapabilitySpec) (ConfigurationRef, error) {
	if spec.Stage == "" {
		spec.Stage = StageLive
	}

	ref, err := p.api.CreateConfiguration(ctx, name, spec)
	if err == nil {
		if ref == "" {
			return "", &ProvisioningError{Name: name, Msg: "create returned an empty reference"}
		}
		log.Info().Str("configuration", name).Str("ref", string(ref)).Msg("Created new configuration")
		return ref, nil
	}
	if !errors.Is(err, ErrNameConflict) {
		return "", &ProvisioningError{Name: name, Msg: "create failed", Err: err}
	}

	log.Debug().Str("configuration", name).Msg("Configuration already exists, looking it up by name")
	existing, err := p.api.ListConfigurations(ctx)
	if err != nil {
		return "", &ProvisioningError{Name: name, Msg: "list after name conflict failed", Err: err}
	}
	for _, c := range existing {
		if c.Name == name && c.Ref != "" {
			log.Info().Str("configuration", name).Str("ref", string(c.Ref)).Msg("Using existing configuration")
			return c.Ref, nil
		}
	}
	return "", &ProvisioningError{Name: name, Msg: "name conflict reported but no configuration with that name exists"}
}
