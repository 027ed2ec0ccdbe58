package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/skiptrace-cli/internal/config"
	"github.com/sells-group/skiptrace-cli/internal/ownership"
	"github.com/sells-group/skiptrace-cli/internal/phone"
	"github.com/sells-group/skiptrace-cli/internal/pipeline"
	"github.com/sells-group/skiptrace-cli/internal/source"
	"github.com/sells-group/skiptrace-cli/internal/store"
	"github.com/sells-group/skiptrace-cli/pkg/phonelookup"
	"github.com/sells-group/skiptrace-cli/pkg/skiptrace"
)

// env bundles the wired collaborators for one command invocation.
type env struct {
	Store       store.Store
	Coordinator *pipeline.Coordinator
	Validator   *phone.Validator
	Lookup      phonelookup.Client
	Policy      phone.Policy
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "skiptrace.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// validationPolicy builds the phone policy from config, preferring the
// standalone policy file when one is set.
func validationPolicy(c *config.Config) (phone.Policy, error) {
	if c.Validation.PolicyFile != "" {
		return phone.LoadPolicy(c.Validation.PolicyFile)
	}

	p := phone.DefaultPolicy()
	if c.Validation.MaxAttempts > 0 {
		p.Retry.MaxAttempts = c.Validation.MaxAttempts
	}
	if c.Validation.BaseDelayMs > 0 {
		p.Retry.BaseDelay = time.Duration(c.Validation.BaseDelayMs) * time.Millisecond
	}
	if c.Validation.InterCallDelayMs > 0 {
		p.InterCallDelay = time.Duration(c.Validation.InterCallDelayMs) * time.Millisecond
	}
	if c.Validation.MaxPrimaryPhones > 0 {
		p.MaxPrimaryPhones = c.Validation.MaxPrimaryPhones
	}
	if c.Validation.MaxSecondOwnerPhones > 0 {
		p.MaxSecondOwnerPhones = c.Validation.MaxSecondOwnerPhones
	}
	if c.Validation.MaxPersistedPhones > 0 {
		p.MaxPersistedPhones = c.Validation.MaxPersistedPhones
	}
	return p, nil
}

// initEnv wires the store, provider clients, resolver, validator, and
// coordinator.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	policy, err := validationPolicy(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	searcher := skiptrace.NewClient(cfg.SkipTrace.Key,
		skiptrace.WithBaseURL(cfg.SkipTrace.BaseURL),
		skiptrace.WithTimeout(time.Duration(cfg.SkipTrace.TimeoutSecs)*time.Second),
	)
	lookup := phonelookup.NewClient(cfg.PhoneLookup.Key,
		phonelookup.WithBaseURL(cfg.PhoneLookup.BaseURL),
		phonelookup.WithTimeout(time.Duration(cfg.PhoneLookup.TimeoutSecs)*time.Second),
		phonelookup.WithRateLimit(cfg.PhoneLookup.RPS),
	)

	resolver := ownership.NewResolver(st, ownership.NewRegistry(), policy)
	validator := phone.NewValidator(st, lookup, policy)
	coordinator := pipeline.NewCoordinator(
		st,
		source.NewStoreOwnerSource(st),
		source.NewStorePropertySource(st),
		searcher,
		resolver,
		validator,
		policy,
	)

	return &env{
		Store:       st,
		Coordinator: coordinator,
		Validator:   validator,
		Lookup:      lookup,
		Policy:      policy,
	}, nil
}
