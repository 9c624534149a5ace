package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/imlitech/split/types"
)

// MetricKey returns the store key listing the experiments of a metric.
func MetricKey(metric string) string {
	return "metric:" + metric
}

// MetricExperiments returns the experiment names grouped under metric, from
// both static definitions and the store, without duplicates.
func (c *Catalog) MetricExperiments(ctx context.Context, metric string) ([]string, error) {
	var names []string

	if c.defs != nil {
		for _, name := range c.defs.Names() {
			if def, ok := c.defs.Lookup(name); ok && def.Metric == metric {
				names = append(names, name)
			}
		}
	}

	stored, err := c.store.LRange(ctx, MetricKey(metric))
	if err != nil {
		return nil, fmt.Errorf("load metric %s: %w", metric, err)
	}
	for _, name := range stored {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	return names, nil
}

// PossibleExperiments resolves a completion name to the experiments it finishes.
//
// A name resolves to every persisted experiment grouped under the metric of
// that name, plus the persisted experiment of that name itself. Experiments
// that were never persisted are skipped.
//
// Parameters:
//   - ctx: Context
//   - name: Metric or experiment name
//
// Returns:
//   - []*types.Experiment: Matching experiments (possibly empty)
//   - error: Store error
func (c *Catalog) PossibleExperiments(ctx context.Context, name string) ([]*types.Experiment, error) {
	names, err := c.MetricExperiments(ctx, name)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) {
		names = append(names, name)
	}

	experiments := make([]*types.Experiment, 0, len(names))
	for _, n := range names {
		exp, found, err := c.Find(ctx, n)
		if err != nil {
			return nil, err
		}
		if found {
			experiments = append(experiments, exp)
		}
	}

	return experiments, nil
}

func (c *Catalog) addToMetric(ctx context.Context, exp *types.Experiment) error {
	if exp.Metric == "" {
		return nil
	}

	members, err := c.store.LRange(ctx, MetricKey(exp.Metric))
	if err != nil {
		return fmt.Errorf("load metric %s: %w", exp.Metric, err)
	}
	if slices.Contains(members, exp.Name) {
		return nil
	}
	if err := c.store.LPush(ctx, MetricKey(exp.Metric), exp.Name); err != nil {
		return fmt.Errorf("add %s to metric %s: %w", exp.Name, exp.Metric, err)
	}

	return nil
}
