// Package host provides the page surfaces the idle monitor can drive.
package host

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/autologout/internal/app/idle"
)

// Host is a page surface with its own run loop.
type Host interface {
	idle.Page
	// Run blocks until the user quits, the page navigates away, or ctx is done.
	Run(ctx context.Context) error
	// Result describes how the page view ended, if it navigated.
	Result() string
}

// NavigateFunc loads path in the portal and returns a description of where it ended up.
type NavigateFunc func(ctx context.Context, path string) (string, error)

// Options holds what every host needs to render the page.
type Options struct {
	Title         string
	IconHref      string
	AlertIconHref string
	IndicatorText string
	AnimateClass  string
	PortalURL     string
	Navigate      NavigateFunc
	In            io.Reader
	Out           io.Writer
}

// Factory creates a host from its settings.
type Factory struct {
	Name        string
	Description string
	New         func(settings map[string]any, opts Options) (Host, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// ErrUnknownHost is returned by New for an unregistered host type.
var ErrUnknownHost = errors.New("unknown host type")

// Register registers a host factory.
func Register(f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name] = f
}

// Registered returns all registered factories sorted by name.
func Registered() []Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Factory, 0, len(registry))
	for _, f := range registry {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// New creates a host of the given type.
func New(name string, settings map[string]any, opts Options) (Host, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHost, "%q", name)
	}
	return f.New(settings, opts)
}

// DecodeSettings decodes a settings map into out, then applies defaults and validation.
func DecodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
