package cache

import (
	"context"
	"log/slog"
)

// Disabled is the cache used when the store was unreachable at startup.
// Every operation fails with ErrDisabled.
type Disabled struct{}

var _ Cache = Disabled{}

// OpenOrDisabled opens the NATS-backed cache, falling back to Disabled when
// the store cannot be reached. The fallback is logged once, here.
func OpenOrDisabled(ctx context.Context, opts Options) Cache {
	c, err := Open(ctx, opts)
	if err != nil {
		slog.Warn("cache disabled: hand-raise operations will be no-ops",
			"url", opts.URL,
			"error", err,
		)
		return Disabled{}
	}
	return c
}

func (Disabled) Enabled() bool { return false }
func (Disabled) Healthy() bool { return false }

func (Disabled) GetRecord(context.Context, string) ([]byte, error)       { return nil, ErrDisabled }
func (Disabled) PutRecord(context.Context, string, []byte) error         { return ErrDisabled }
func (Disabled) DeleteRecord(context.Context, string) error              { return ErrDisabled }
func (Disabled) HashSet(context.Context, string, string, []byte) error   { return ErrDisabled }
func (Disabled) HashGet(context.Context, string, string) ([]byte, error) { return nil, ErrDisabled }
func (Disabled) HashLen(context.Context, string) (int, error)            { return 0, ErrDisabled }
func (Disabled) HashDeleteAll(context.Context, string) (int, error)      { return 0, ErrDisabled }
func (Disabled) ListRange(context.Context, string) ([]string, error)     { return nil, ErrDisabled }
func (Disabled) ListDelete(context.Context, string) error                { return ErrDisabled }
func (Disabled) Close() error                                            { return nil }

func (Disabled) UpdateRecord(context.Context, string, func([]byte) ([]byte, error)) error {
	return ErrDisabled
}

func (Disabled) HashSetNX(context.Context, string, string, []byte) (bool, error) {
	return false, ErrDisabled
}

func (Disabled) HashDelete(context.Context, string, string) (bool, error) {
	return false, ErrDisabled
}

func (Disabled) HashGetAll(context.Context, string) (map[string][]byte, error) {
	return nil, ErrDisabled
}

func (Disabled) ListPushTrim(context.Context, string, string, int) ([]string, error) {
	return nil, ErrDisabled
}

func (Disabled) ListRemove(context.Context, string, string) (int, error) {
	return 0, ErrDisabled
}
