package queue

import (
	"context"
	"fmt"
	"time"

	"bookline/config"
	historyRepo "bookline/database/repository/history"
	shopRepo "bookline/database/repository/shop"
)

// FactorCurve is the time-of-day/day-of-week wait adjustment table, keyed
// "weekday:hour" (e.g. "Sat:10"). The curve is policy supplied through
// configuration; missing buckets mean no adjustment.
type FactorCurve map[string]float64

// FactorCurveFromConfig builds the curve from the loaded AppConfig.
func FactorCurveFromConfig() FactorCurve {
	return FactorCurve(config.AppConfig.WaitFactors)
}

// Lookup returns the factor for an instant, defaulting to 1.0.
func (c FactorCurve) Lookup(at time.Time) float64 {
	if c == nil {
		return 1.0
	}
	key := fmt.Sprintf("%s:%d", at.Weekday().String()[:3], at.Hour())
	if f, ok := c[key]; ok && f > 0 {
		return f
	}
	return 1.0
}

// Estimator predicts per-position wait from recent service-time history,
// active specialist parallelism, and the temporal adjustment curve.
type Estimator struct {
	History historyRepo.HistoryRepository
	Shops   shopRepo.ShopRepository

	WindowSize     int           // recent completions considered
	MinSamples     int           // below this, fall back to the shop default
	DefaultService time.Duration // global fallback when the shop defines none
	Factors        FactorCurve
}

// WaitFor computes the predicted wait for a ticket with the given number of
// positional tickets ahead of it. The result is truncated to whole minutes
// and never negative.
func (e *Estimator) WaitFor(ctx context.Context, shopID string, ticketsAhead, activeSpecialists int, at time.Time) (time.Duration, error) {
	if ticketsAhead <= 0 {
		return 0, nil
	}

	avg, err := e.avgServiceTime(ctx, shopID)
	if err != nil {
		return 0, err
	}

	raw := time.Duration(ticketsAhead) * avg
	if activeSpecialists < 1 {
		activeSpecialists = 1 // never divide by zero; an empty shop still serves serially once staffed
	}
	adjusted := raw / time.Duration(activeSpecialists)
	adjusted = time.Duration(float64(adjusted) * e.Factors.Lookup(at))

	adjusted = adjusted.Truncate(time.Minute)
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted, nil
}

// avgServiceTime averages the most recent window of completed samples,
// falling back to the shop default (then the global default) when too few
// samples exist.
func (e *Estimator) avgServiceTime(ctx context.Context, shopID string) (time.Duration, error) {
	window := e.WindowSize
	if window <= 0 {
		window = 20
	}

	if e.History != nil {
		samples, err := e.History.RecentByShop(ctx, shopID, window)
		if err != nil {
			return 0, fmt.Errorf("estimate: %w", err)
		}
		if len(samples) >= e.MinSamples && len(samples) > 0 {
			var total time.Duration
			for _, s := range samples {
				total += s.Duration
			}
			return total / time.Duration(len(samples)), nil
		}
	}

	if e.Shops != nil {
		if shop, err := e.Shops.GetShop(ctx, shopID); err == nil && shop.DefaultServiceMinutes > 0 {
			return time.Duration(shop.DefaultServiceMinutes) * time.Minute, nil
		}
	}
	if e.DefaultService > 0 {
		return e.DefaultService, nil
	}
	return 20 * time.Minute, nil
}
