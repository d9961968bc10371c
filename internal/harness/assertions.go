package harness

import (
	"context"
	"fmt"

	"github.com/roach88/foodking/internal/auth"
	"github.com/roach88/foodking/internal/cart"
	"github.com/roach88/foodking/internal/devserver"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
)

// AssertionContext is what assertions read final state from.
type AssertionContext struct {
	Ctx       context.Context
	Server    *devserver.Server
	StatePath string
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOrderCount:
		if n := len(actx.Server.Orders()); n != a.Count {
			return fmt.Errorf("server has %d orders, want %d", n, a.Count)
		}
		return nil

	case AssertOrderStatus:
		orders := actx.Server.Orders()
		if a.Order > len(orders) {
			return fmt.Errorf("order %d does not exist, the server has %d", a.Order, len(orders))
		}
		want, err := model.ParseStatus(a.Status)
		if err != nil {
			return err
		}
		if got := orders[a.Order-1].Status; got != want {
			return fmt.Errorf("order %d is %s, want %s", a.Order, got, want)
		}
		return nil

	case AssertCartCount:
		return withState(actx, func(kv store.KV) error {
			c := cart.Open(actx.Ctx, kv)
			if n := c.Count(); n != a.Count {
				return fmt.Errorf("cart holds %d units, want %d", n, a.Count)
			}
			return nil
		})

	case AssertLoggedIn:
		return withState(actx, func(kv store.KV) error {
			_, ok, err := kv.Get(actx.Ctx, auth.StorageKey)
			if err != nil {
				return err
			}
			if ok != a.LoggedIn {
				return fmt.Errorf("staff token persisted = %v, want %v", ok, a.LoggedIn)
			}
			return nil
		})
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// withState opens the client's state database for reading.
func withState(actx *AssertionContext, fn func(kv store.KV) error) error {
	st, err := store.Open(actx.StatePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer st.Close()
	return fn(st)
}
