// Package env loads a .env file and overlays environment variables on a
// ConfigStore without persisting them.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// Prefix marks generic overrides: NEPHRA_RETRIEVAL_TOP_K sets retrieval.top_k.
const Prefix = "NEPHRA_"

// bindings maps conventional variable names to config keys.
var bindings = map[string][]string{
	"OPENAI_API_KEY":      {"embedding.api_key", "llm.api_key"},
	"PINECONE_API_KEY":    {"vector_index.pinecone.api_key"},
	"PINECONE_INDEX":      {"vector_index.pinecone.index"},
	"QDRANT_URL":          {"vector_index.qdrant.url"},
	"QDRANT_API_KEY":      {"vector_index.qdrant.api_key"},
	"NEPHRA_ADMIN_SECRET": {"server.admin_secret"},
	"REDIS_ADDR":          {"cache.redis.addr"},
	"NEPHRA_CORPUS_DIR":   {"corpus.dir"},
}

// LoadDotEnv loads variables from the given files (default ".env").
// Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Overlay answers reads from the environment first, then from the base
// store. Writes go to the base store.
type Overlay struct {
	driven.ConfigStore
	lookup func(string) (string, bool)
}

// NewOverlay wraps base. A nil lookup uses os.LookupEnv.
func NewOverlay(base driven.ConfigStore, lookup func(string) (string, bool)) *Overlay {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Overlay{ConfigStore: base, lookup: lookup}
}

// VarsFor returns the environment variables that can set key, in
// precedence order.
func VarsFor(key string) []string {
	vars := []string{Prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))}
	for name, keys := range bindings {
		for _, k := range keys {
			if k == key && name != vars[0] {
				vars = append(vars, name)
			}
		}
	}
	return vars
}

// Source returns the variable overriding key, if any.
func (o *Overlay) Source(key string) (string, bool) {
	for _, name := range VarsFor(key) {
		if v, ok := o.lookup(name); ok && v != "" {
			return name, true
		}
	}
	return "", false
}

func (o *Overlay) env(key string) (string, bool) {
	name, ok := o.Source(key)
	if !ok {
		return "", false
	}
	v, _ := o.lookup(name)
	return v, true
}

// Get retrieves a configuration value by key.
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.ConfigStore.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.ConfigStore.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *Overlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return o.ConfigStore.GetInt(key)
}

// GetFloat retrieves a floating point configuration value.
func (o *Overlay) GetFloat(key string) float64 {
	if v, ok := o.env(key); ok {
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return o.ConfigStore.GetFloat(key)
}

// GetDuration retrieves a duration; bare integers are seconds.
func (o *Overlay) GetDuration(key string) time.Duration {
	if v, ok := o.env(key); ok {
		v = strings.TrimSpace(v)
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		return 0
	}
	return o.ConfigStore.GetDuration(key)
}

// GetBool retrieves a boolean configuration value.
func (o *Overlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return o.ConfigStore.GetBool(key)
}

// GetStringSlice splits a comma-separated variable.
func (o *Overlay) GetStringSlice(key string) []string {
	if v, ok := o.env(key); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return o.ConfigStore.GetStringSlice(key)
}
