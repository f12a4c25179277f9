// Package config loads cachekit settings from YAML and turns them into a
// backend, a TTL policy and cachekit.Options.
//
//	backend:
//	  kind: redis
//	  redis:
//	    addrs: ["localhost:6379"]
//	ttl:
//	  default: 10m
//	  per_prefix:
//	    user: 1h
//	    session: never
//	codec: msgpack
//	schema_version: 2
//	max_payload_bytes: 1048576
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/cachekit"
	"github.com/unkn0wn-root/cachekit/backend"
	bcbackend "github.com/unkn0wn-root/cachekit/backend/bigcache"
	boltbackend "github.com/unkn0wn-root/cachekit/backend/bolt"
	mcbackend "github.com/unkn0wn-root/cachekit/backend/memcached"
	"github.com/unkn0wn-root/cachekit/backend/memory"
	redisbackend "github.com/unkn0wn-root/cachekit/backend/redis"
	rbackend "github.com/unkn0wn-root/cachekit/backend/ristretto"
	"github.com/unkn0wn-root/cachekit/codec"
	"github.com/unkn0wn-root/cachekit/keys"
	"github.com/unkn0wn-root/cachekit/ttl"
)

// Backend kinds.
const (
	KindMemory    = "memory"
	KindRedis     = "redis"
	KindMemcached = "memcached"
	KindRistretto = "ristretto"
	KindBigCache  = "bigcache"
	KindBolt      = "bolt"
)

// EnvPrefix is used by ApplyEnv when no prefix is given.
const EnvPrefix = "CACHEKIT"

type Config struct {
	Backend   Backend `yaml:"backend"`
	TTL       TTL     `yaml:"ttl"`
	CodecName string  `yaml:"codec"`
	// MaxPayloadBytes caps encoded payloads in both directions; 0 = no cap.
	MaxPayloadBytes int    `yaml:"max_payload_bytes"`
	SchemaVersion   uint32 `yaml:"schema_version"`
	Coalesce        bool   `yaml:"coalesce"`
}

type Backend struct {
	Kind      string          `yaml:"kind"`
	Memory    MemoryConfig    `yaml:"memory"`
	Redis     RedisConfig     `yaml:"redis"`
	Memcached MemcachedConfig `yaml:"memcached"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
	BigCache  BigCacheConfig  `yaml:"bigcache"`
	Bolt      BoltConfig      `yaml:"bolt"`
}

type MemoryConfig struct {
	SweepInterval Duration `yaml:"sweep_interval"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

type MemcachedConfig struct {
	Servers      []string `yaml:"servers"`
	Timeout      Duration `yaml:"timeout"`
	MaxIdleConns int      `yaml:"max_idle_conns"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
}

type BigCacheConfig struct {
	LifeWindow         Duration `yaml:"life_window"`
	CleanWindow        Duration `yaml:"clean_window"`
	MaxEntriesInWindow int      `yaml:"max_entries_in_window"`
	MaxEntrySize       int      `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int      `yaml:"hard_max_cache_size_mb"`
}

type BoltConfig struct {
	Path        string   `yaml:"path"`
	Bucket      string   `yaml:"bucket"`
	OpenTimeout Duration `yaml:"open_timeout"`
}

// TTL maps entity prefixes to expiry. Default applies to prefixes not listed.
type TTL struct {
	Default   Duration            `yaml:"default"`
	PerPrefix map[string]Duration `yaml:"per_prefix"`
}

// Default returns the configuration used for omitted fields.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Kind:   KindMemory,
			Memory: MemoryConfig{SweepInterval: Duration(time.Minute)},
			Ristretto: RistrettoConfig{
				NumCounters: 1_000_000,
				MaxCost:     64 << 20,
				BufferItems: 64,
			},
			BigCache: BigCacheConfig{
				LifeWindow:         Duration(10 * time.Minute),
				MaxEntriesInWindow: 10_000,
				MaxEntrySize:       512,
			},
			Bolt: BoltConfig{Bucket: "cachekit"},
		},
		TTL:       TTL{Default: Duration(10 * time.Minute)},
		CodecName: "msgpack",
	}
}

// Parse decodes YAML over Default and validates the result. Unknown fields
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path, applies CACHEKIT_* environment overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cachekit.Error{Kind: cachekit.ErrConfig, Op: "read config", Err: err}
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(EnvPrefix)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &cachekit.Error{Kind: cachekit.ErrConfig, Op: "parse yaml", Err: err}
	}
	return cfg, nil
}

// ApplyEnv overrides backend connection settings from the environment:
// <prefix>_BACKEND, <prefix>_REDIS_ADDRS, <prefix>_REDIS_PASSWORD,
// <prefix>_MEMCACHED_SERVERS, <prefix>_BOLT_PATH. Lists are comma separated.
func (c *Config) ApplyEnv(prefix string) {
	if val := os.Getenv(prefix + "_BACKEND"); val != "" {
		c.Backend.Kind = val
	}
	if val := os.Getenv(prefix + "_REDIS_ADDRS"); val != "" {
		c.Backend.Redis.Addrs = strings.Split(val, ",")
	}
	if val := os.Getenv(prefix + "_REDIS_PASSWORD"); val != "" {
		c.Backend.Redis.Password = val
	}
	if val := os.Getenv(prefix + "_MEMCACHED_SERVERS"); val != "" {
		c.Backend.Memcached.Servers = strings.Split(val, ",")
	}
	if val := os.Getenv(prefix + "_BOLT_PATH"); val != "" {
		c.Backend.Bolt.Path = val
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend.Kind {
	case KindMemory, KindRistretto:
	case KindRedis:
		if len(c.Backend.Redis.Addrs) == 0 {
			errs = append(errs, errors.New("backend.redis.addrs is required"))
		}
	case KindMemcached:
		if len(c.Backend.Memcached.Servers) == 0 {
			errs = append(errs, errors.New("backend.memcached.servers is required"))
		}
	case KindBigCache:
		if c.Backend.BigCache.LifeWindow <= 0 {
			errs = append(errs, errors.New("backend.bigcache.life_window must be positive"))
		}
	case KindBolt:
		if c.Backend.Bolt.Path == "" {
			errs = append(errs, errors.New("backend.bolt.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend kind %q", c.Backend.Kind))
	}

	if _, ok := codec.ByName(c.CodecName); !ok {
		errs = append(errs, fmt.Errorf("unknown codec %q", c.CodecName))
	}
	if c.MaxPayloadBytes < 0 {
		errs = append(errs, errors.New("max_payload_bytes must not be negative"))
	}
	for prefix := range c.TTL.PerPrefix {
		if err := keys.ValidatePrefix(prefix); err != nil {
			errs = append(errs, fmt.Errorf("ttl.per_prefix %q: %w", prefix, err))
		}
	}

	if len(errs) > 0 {
		return &cachekit.Error{Kind: cachekit.ErrConfig, Op: "validate", Err: errors.Join(errs...)}
	}
	return nil
}

// TTLPolicy builds the policy described by c.TTL. "never" and zero both mean
// no expiry.
func (c *Config) TTLPolicy() ttl.Policy {
	if len(c.TTL.PerPrefix) == 0 {
		return ttl.Fixed(ttlOf(c.TTL.Default))
	}
	by := make(map[string]time.Duration, len(c.TTL.PerPrefix))
	for p, d := range c.TTL.PerPrefix {
		by[p] = ttlOf(d)
	}
	return ttl.PerType(ttl.Table{Default: ttlOf(c.TTL.Default), ByPrefix: by})
}

func ttlOf(d Duration) time.Duration {
	if d == Never {
		return 0
	}
	return d.Std()
}

func (c *Config) Codec() (codec.Codec, error) {
	cd, ok := codec.ByName(c.CodecName)
	if !ok {
		return nil, &cachekit.Error{Kind: cachekit.ErrConfig, Op: "codec", Err: fmt.Errorf("unknown codec %q", c.CodecName)}
	}
	if c.MaxPayloadBytes > 0 {
		return codec.Limit{Inner: cd, MaxDecode: c.MaxPayloadBytes, MaxEncode: c.MaxPayloadBytes}, nil
	}
	return cd, nil
}

// OpenBackend constructs the configured backend. ctx bounds background
// goroutines of backends that start any (bigcache).
func (c *Config) OpenBackend(ctx context.Context) (backend.Backend, error) {
	b := c.Backend
	var (
		be  backend.Backend
		err error
	)
	switch b.Kind {
	case KindMemory:
		be = memory.New(b.Memory.SweepInterval.Std())
	case KindRedis:
		be, err = redisbackend.Dial(b.Redis.Addrs, b.Redis.Password, b.Redis.DB)
	case KindMemcached:
		be, err = mcbackend.New(mcbackend.Config{
			Servers:      b.Memcached.Servers,
			Timeout:      b.Memcached.Timeout.Std(),
			MaxIdleConns: b.Memcached.MaxIdleConns,
		})
	case KindRistretto:
		be, err = rbackend.New(rbackend.Config{
			NumCounters: b.Ristretto.NumCounters,
			MaxCost:     b.Ristretto.MaxCost,
			BufferItems: b.Ristretto.BufferItems,
			Metrics:     b.Ristretto.Metrics,
		})
	case KindBigCache:
		be, err = bcbackend.New(ctx, bcbackend.Config{
			LifeWindow:         b.BigCache.LifeWindow.Std(),
			CleanWindow:        b.BigCache.CleanWindow.Std(),
			MaxEntriesInWindow: b.BigCache.MaxEntriesInWindow,
			MaxEntrySize:       b.BigCache.MaxEntrySize,
			HardMaxCacheSizeMB: b.BigCache.HardMaxCacheSizeMB,
		})
	case KindBolt:
		be, err = boltbackend.Open(b.Bolt.Path, boltbackend.Options{
			Bucket:      b.Bolt.Bucket,
			OpenTimeout: b.Bolt.OpenTimeout.Std(),
		})
	default:
		err = fmt.Errorf("unknown backend kind %q", b.Kind)
	}
	if err != nil {
		return nil, &cachekit.Error{Kind: cachekit.ErrConfig, Op: "open " + b.Kind + " backend", Err: err}
	}
	return be, nil
}

// Options assembles cachekit.Options around be. Logger and Metrics are left
// for the caller.
func (c *Config) Options(be backend.Backend) (cachekit.Options, error) {
	cd, err := c.Codec()
	if err != nil {
		return cachekit.Options{}, err
	}
	return cachekit.Options{
		Backend:       be,
		Codec:         cd,
		SchemaVersion: c.SchemaVersion,
		TTL:           c.TTLPolicy(),
		Coalesce:      c.Coalesce,
	}, nil
}

// NewExpander opens the backend and builds an Expander with the given
// logger and metrics (either may be nil).
func (c *Config) NewExpander(ctx context.Context, log cachekit.Logger, m cachekit.Metrics) (*cachekit.Expander, error) {
	be, err := c.OpenBackend(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := c.Options(be)
	if err != nil {
		_ = be.Close(ctx)
		return nil, err
	}
	opts.Logger, opts.Metrics = log, m
	x, err := cachekit.New(opts)
	if err != nil {
		_ = be.Close(ctx)
		return nil, err
	}
	return x, nil
}
