package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumer     consumer
}

// Service checks its dependencies once and then drains the task
// subscription until the context ends.
type Service struct {
	logg     *logger.Logger
	deps     map[string]pinger
	consumer consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("task consumer is required")
	}
	for name, dep := range params.Dependencies {
		if dep == nil {
			return nil, fmt.Errorf("%s client is required", name)
		}
	}
	return &Service{logg: params.Logger, deps: params.Dependencies, consumer: params.Consumer}, nil
}

// ready pings every dependency concurrently and reports the failures in
// name order.
func (s *Service) ready(ctx context.Context) error {
	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, len(names))
	var group errgroup.Group
	for i, name := range names {
		group.Go(func() error {
			if err := s.deps[name].Ping(ctx); err != nil {
				s.logg.Error(ctx, name+" ping failed", err)
				errs[i] = fmt.Errorf("%s ping failed: %w", name, err)
			}
			return nil
		})
	}
	_ = group.Wait()
	return multierr.Combine(errs...)
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker dependencies ready")

	err := s.consumer.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.logg.Info(ctx, "task consumer stopped")
		return ctx.Err()
	default:
		s.logg.Error(ctx, "task consumer stopped unexpectedly", err)
		return err
	}
}
