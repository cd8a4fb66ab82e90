// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import "context"

// Observer receives every transition of a campaign, in order. Observe
// is called synchronously from the controller; slow observers slow
// the sweep.
type Observer interface {
	Observe(ctx context.Context, transition Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, transition Transition)

func (f ObserverFunc) Observe(ctx context.Context, transition Transition) { f(ctx, transition) }

// Observers fans transitions out to several observers.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, transition Transition) {
	for _, observer := range o {
		observer.Observe(ctx, transition)
	}
}
