/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Decision is the result of an admission check.
type Decision int

// Decisions.
const (
	Allow Decision = iota
	Reject
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// DefaultWindow is the minimal gap between two admitted requests of one client.
const DefaultWindow = 10 * time.Millisecond

// Policy controls how the guard decides.
type Policy struct {
	// Window is the minimal gap between two requests of one client. Must be positive.
	Window time.Duration
	// RearmOnReject updates the last-seen time on Reject too.
	RearmOnReject bool
}

// DefaultPolicy returns a 10ms window that is re-armed on every rejected attempt.
func DefaultPolicy() Policy {
	return Policy{Window: DefaultWindow, RearmOnReject: true}
}

// Request describes an inbound request.
type Request struct {
	Method    string
	ClientKey string
}

// Outcome is what the pipeline acts upon: continue with ClientKey on Allow, abort with Reason on Reject.
type Outcome struct {
	Decision  Decision
	ClientKey string
	Reason    error
}

// Allowed reports whether the request may proceed.
func (o Outcome) Allowed() bool {
	return o.Decision == Allow
}

// Store keeps the last-seen time per client.
// Admit must perform the lookup, the decision and the update as one atomic step for the key.
type Store interface {
	Admit(ctx context.Context, clientKey string, now time.Time, policy Policy) (Decision, error)
}

// Clock returns the current time.
type Clock func() time.Time

// GuardOpts represents options for Guard.
type GuardOpts struct {
	// Clock is time.Now if nil.
	Clock Clock
	// Methods that are throttled. Only GET if empty.
	Methods []string
}

// Guard decides whether a request is admitted.
type Guard struct {
	store   Store
	policy  Policy
	now     Clock
	methods map[string]struct{}
}

// NewGuard creates a new Guard.
func NewGuard(store Store, policy Policy, opts GuardOpts) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if policy.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", policy.Window)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if len(opts.Methods) == 0 {
		opts.Methods = []string{http.MethodGet}
	}
	methods := make(map[string]struct{}, len(opts.Methods))
	for _, m := range opts.Methods {
		methods[strings.ToUpper(m)] = struct{}{}
	}
	return &Guard{store: store, policy: policy, now: opts.Clock, methods: methods}, nil
}

// Policy returns the policy the guard was created with.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Admit checks the request. An error is returned only if the store fails;
// the guard never retries.
func (g *Guard) Admit(ctx context.Context, req Request) (Outcome, error) {
	if _, ok := g.methods[req.Method]; !ok {
		return Outcome{Decision: Allow, ClientKey: req.ClientKey}, nil
	}
	decision, err := g.store.Admit(ctx, req.ClientKey, g.now(), g.policy)
	if err != nil {
		return Outcome{}, fmt.Errorf("admit client %q: %w", req.ClientKey, err)
	}
	if decision == Reject {
		return Outcome{
			Decision:  Reject,
			ClientKey: req.ClientKey,
			Reason:    &ThrottledError{ClientKey: req.ClientKey, Window: g.policy.Window},
		}, nil
	}
	return Outcome{Decision: Allow, ClientKey: req.ClientKey}, nil
}

// decide applies the policy to the stored last-seen time and reports whether it must be overwritten with now.
func decide(lastSeen time.Time, found bool, now time.Time, policy Policy) (decision Decision, update bool) {
	if !found || now.Sub(lastSeen) >= policy.Window {
		return Allow, true
	}
	return Reject, policy.RearmOnReject
}
