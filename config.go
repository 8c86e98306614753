// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package rtree

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
)

// Backend selects a Node Map implementation.
type Backend string

const (
	BackendPlain          Backend = "Plain"
	BackendHashSummarized Backend = "HashSummarized"
)

// Mode selects whether the engine mirrors its node map into the
// Replication Bridge.
type Mode string

const (
	ModeStandalone  Mode = "Standalone"
	ModeDistributed Mode = "Distributed"
)

const defaultWidth = 6

// Config is the typed projection of the recognized options map.
// Unknown keys are silently dropped; invalid values fall back to their
// default (ErrInvalidConfig is recorded via Log, not returned).
type Config struct {
	Width   int     `mapstructure:"width"`
	Type    Backend `mapstructure:"type"`
	Mode    Mode    `mapstructure:"mode"`
	Verbose bool    `mapstructure:"verbose"`
	Seed    int64   `mapstructure:"seed"`
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() Config {
	return Config{
		Width:   defaultWidth,
		Type:    BackendPlain,
		Mode:    ModeStandalone,
		Verbose: false,
		Seed:    0,
	}
}

// NewConfig decodes opts (an options map as an RPC/CLI caller would hand
// in) into a Config. Recognized keys
// override the default; anything else -- an unknown key, or a
// recognized key with an invalid value -- is dropped in favor of the
// default and logged at debug level when log is non-nil and verbose
// ends up true.
//
// Decoding itself goes through mitchellh/mapstructure so that "unknown
// keys are silently dropped" and "width as either a JSON number or a
// numeric string" come for free from the library rather than from
// hand-rolled type-switching, the same way the wider pack's services
// decode loosely-typed options into strict config structs.
func NewConfig(opts map[string]any, log *zerolog.Logger) Config {
	cfg := DefaultConfig()
	if opts == nil {
		return cfg
	}

	decoded := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		logInvalidConfig(log, "", err)
		return cfg
	}
	// mapstructure keeps decoding the remaining fields after one fails,
	// so a field whose value could not be decoded keeps its default.
	decodeErr := dec.Decode(opts)
	cfg = decoded
	if !cfg.Verbose {
		log = nil
	}
	if decodeErr != nil {
		logInvalidConfig(log, "", decodeErr)
	}
	if cfg.Width <= 0 {
		logInvalidConfig(log, "width", fmt.Errorf("width must be > 0, got %d", cfg.Width))
		cfg.Width = defaultWidth
	}
	switch cfg.Type {
	case BackendPlain, BackendHashSummarized:
	default:
		logInvalidConfig(log, "type", fmt.Errorf("unrecognized backend %q", cfg.Type))
		cfg.Type = BackendPlain
	}
	switch cfg.Mode {
	case ModeStandalone, ModeDistributed:
	default:
		logInvalidConfig(log, "mode", fmt.Errorf("unrecognized mode %q", cfg.Mode))
		cfg.Mode = ModeStandalone
	}

	// Distributed mode forces the hash-summarized backend:
	// diff_keys only exists on that backend, and the Replication Bridge
	// needs it after every mutation.
	if cfg.Mode == ModeDistributed {
		cfg.Type = BackendHashSummarized
	}

	return cfg
}

func logInvalidConfig(log *zerolog.Logger, key string, cause error) {
	if log == nil {
		return
	}
	log.Debug().Err(ErrInvalidConfig).Str("key", key).AnErr("cause", cause).
		Msg("dropped invalid configuration option, using default")
}

// Metadata carries the live, non-tree state a Dispatcher holds alongside
// a Tree value: the resolved Config plus the id generator's current
// Ticket.
type Metadata struct {
	Config Config
	Ticket Ticket
}

// NewMetadata seeds Metadata from opts, drawing the id generator's
// initial ticket from Config.Seed.
func NewMetadata(opts map[string]any, log *zerolog.Logger) Metadata {
	cfg := NewConfig(opts, log)
	return Metadata{Config: cfg, Ticket: NewTicket(cfg.Seed)}
}

// NewNodeMap constructs the backend selected by Config.Type.
func (c Config) NewNodeMap() NodeMap {
	if c.Type == BackendHashSummarized {
		return NewHashSummarizedMap()
	}
	return NewPlainMap()
}
