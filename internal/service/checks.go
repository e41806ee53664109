package service

import (
	"context"

	"go.uber.org/zap"
)

// check is one named step of an ordered validation chain.
type check struct {
	name string
	run  func(ctx context.Context) error
}

// runChecks executes checks in order and returns the first failure.
func runChecks(ctx context.Context, logger *zap.Logger, checks ...check) error {
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			logger.Debug("validation check failed", zap.String("check", c.name), zap.Error(err))
			return err
		}
	}
	return nil
}
