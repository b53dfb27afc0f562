package interceptor

import (
	"context"
	"sync"

	"github.com/huangsam/assetcache/schema"
)

// Registration tracks which interceptor version controls the proxy.
// Install always completes before Activate, and Activate completes before
// a version becomes the controller.
type Registration struct {
	mu         sync.Mutex
	register   sync.Mutex // serializes Register calls
	controller *Interceptor
	waiting    *Interceptor
	states     map[*Interceptor]schema.LifecycleState
}

// NewRegistration returns an empty registration.
func NewRegistration() *Registration {
	return &Registration{states: map[*Interceptor]schema.LifecycleState{}}
}

// Register installs ic and activates it when nothing is active yet or when
// the install asked to skip waiting. Otherwise ic waits behind the controller.
// The install outcome is returned; an Activate error is returned separately.
func (r *Registration) Register(ctx context.Context, ic *Interceptor) (InstallResult, error) {
	r.register.Lock()
	defer r.register.Unlock()

	r.setState(ic, schema.InstallingState)
	result := ic.Install(ctx)
	r.setState(ic, schema.InstalledState)

	r.mu.Lock()
	activate := r.controller == nil || result.SkipWaiting
	if !activate {
		if r.waiting != nil && r.waiting != ic {
			r.states[r.waiting] = schema.RedundantState
		}
		r.waiting = ic
	}
	r.mu.Unlock()

	if !activate {
		return result, nil
	}
	return result, r.activate(ctx, ic)
}

// SkipWaiting activates the waiting version, if any.
func (r *Registration) SkipWaiting(ctx context.Context) error {
	r.register.Lock()
	defer r.register.Unlock()

	r.mu.Lock()
	ic := r.waiting
	r.mu.Unlock()
	if ic == nil {
		return nil
	}
	return r.activate(ctx, ic)
}

func (r *Registration) activate(ctx context.Context, ic *Interceptor) error {
	r.setState(ic, schema.ActivatingState)
	if err := ic.Activate(ctx); err != nil {
		r.setState(ic, schema.InstalledState)
		return err
	}

	// Claim: the new version controls every subsequent request
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.controller; prev != nil && prev != ic {
		r.states[prev] = schema.RedundantState
	}
	if r.waiting == ic {
		r.waiting = nil
	}
	r.controller = ic
	r.states[ic] = schema.ActivatedState
	return nil
}

// Controller returns the active version, or nil before the first activation.
func (r *Registration) Controller() *Interceptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller
}

// Waiting returns the installed version that has not been activated, if any.
func (r *Registration) Waiting() *Interceptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// State returns the lifecycle state of ic.
func (r *Registration) State(ic *Interceptor) schema.LifecycleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[ic]; ok {
		return s
	}
	return schema.ParsedState
}

func (r *Registration) setState(ic *Interceptor, s schema.LifecycleState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[ic] = s
}
