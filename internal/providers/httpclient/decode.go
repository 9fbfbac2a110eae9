package httpclient

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

// Decode converts loosely typed JSON items into typed provider records.
// Field names come from json tags; numbers sent as strings and vice versa are accepted.
func Decode(items any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%w: build decoder: %w", sourcing.ErrMalformedResponse, err)
	}
	if err := decoder.Decode(items); err != nil {
		return fmt.Errorf("%w: %w", sourcing.ErrMalformedResponse, err)
	}
	return nil
}

// Items extracts the list stored under key in a decoded JSON object.
// A missing or null key is a clean empty response.
func Items(body map[string]any, key string) ([]any, error) {
	raw, ok := body[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not a list", sourcing.ErrMalformedResponse, key, raw)
	}
	return items, nil
}

// Missing reports an unconfigured credential without doing any I/O.
func Missing(source, credential string) sourcing.Result {
	return sourcing.Failure(fmt.Errorf("%w: %s %s is not configured", sourcing.ErrUnauthenticated, source, credential))
}

// Misconfigured reports a source that cannot search with its current settings.
func Misconfigured(source, setting string) sourcing.Result {
	return sourcing.Failure(fmt.Errorf("%w: %s needs %s", sourcing.ErrMisconfigured, source, setting))
}
