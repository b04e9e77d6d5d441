package mediajob

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnsureConfiguration_ConcurrentCallersShareOneCreate(t *testing.T) {
	api := newFakeConfigAPI()
	api.delay = 20 * time.Millisecond
	p := NewProvisioner(api)

	const callers = 16
	refs := make([]ConfigurationRef, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs[i], errs[i] = p.EnsureConfiguration(context.Background(), "video-analysis", CapabilitySpec{})
		}()
	}
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if refs[i] != refs[0] {
			t.Errorf("caller %d got %q, caller 0 got %q", i, refs[i], refs[0])
		}
	}
	if refs[0] == "" {
		t.Fatal("expected a non-empty reference")
	}
	if n := api.creates.Load(); n != 1 {
		t.Errorf("expected exactly 1 create call, got %d", n)
	}
}

func TestEnsureConfiguration_CachedAfterFirstUse(t *testing.T) {
	api := newFakeConfigAPI()
	p := NewProvisioner(api)

	first, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected %q, got %q", first, second)
	}
	if n := api.creates.Load(); n != 1 {
		t.Errorf("expected 1 create call, got %d", n)
	}
}

func TestEnsureConfiguration_ConflictFallsBackToLookup(t *testing.T) {
	api := newFakeConfigAPI()
	api.existing["proj"] = "arn:existing"
	api.existing["proj-other"] = "arn:other"
	p := NewProvisioner(api)

	ref, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "arn:existing" {
		t.Errorf("expected arn:existing, got %q", ref)
	}
	if n := api.lists.Load(); n != 1 {
		t.Errorf("expected 1 list call, got %d", n)
	}
}

type conflictOnlyAPI struct{}

func (conflictOnlyAPI) CreateConfiguration(ctx context.Context, name string, spec CapabilitySpec) (ConfigurationRef, error) {
	return "", ErrNameConflict
}

func (conflictOnlyAPI) ListConfigurations(ctx context.Context) ([]ConfigurationSummary, error) {
	return []ConfigurationSummary{{Name: "Proj", Ref: "arn:case-mismatch"}}, nil
}

func TestEnsureConfiguration_ConflictWithoutMatch(t *testing.T) {
	p := NewProvisioner(conflictOnlyAPI{})

	_, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	var provErr *ProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProvisioningError, got %v", err)
	}
	if provErr.Name != "proj" {
		t.Errorf("expected name proj, got %q", provErr.Name)
	}
}

func TestEnsureConfiguration_CreateFailureNotCached(t *testing.T) {
	api := newFakeConfigAPI()
	api.createErr = errors.New("throttled")
	p := NewProvisioner(api)

	_, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	var provErr *ProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProvisioningError, got %v", err)
	}
	if !errors.Is(err, api.createErr) {
		t.Errorf("expected wrapped create error, got %v", err)
	}

	api.createErr = nil
	ref, err := p.EnsureConfiguration(context.Background(), "proj", CapabilitySpec{})
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if ref == "" {
		t.Error("expected a reference on retry")
	}
}

func TestEnsureConfiguration_EmptyName(t *testing.T) {
	p := NewProvisioner(newFakeConfigAPI())
	_, err := p.EnsureConfiguration(context.Background(), "", CapabilitySpec{})
	var provErr *ProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProvisioningError, got %v", err)
	}
}
