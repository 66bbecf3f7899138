// Package catalog names the logical services relay talks to. A logical service
// is addressed by identity (an app id known to the registries) and never by
// network location.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Well-known service keys used by the façades.
const (
	Auth        = "auth"
	UserProfile = "userprofile"
	OTP         = "otp"
	Course      = "course"
)

// Service is one logical service.
type Service struct {
	Key   string `yaml:"key"`
	AppID int    `yaml:"app_id"`
	Name  string `yaml:"name"`
}

func (s Service) String() string {
	return fmt.Sprintf("%s(app_id=%d)", s.Label(), s.AppID)
}

// Label is the human name, falling back to the key.
func (s Service) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}

// Catalog maps service keys to logical services. It is built once at startup
// and read-only afterwards.
type Catalog struct {
	services map[string]Service
}

// fileSchema is the on-disk YAML layout:
//
//	services:
//	  - key: auth
//	    app_id: 15
//	    name: auth
type fileSchema struct {
	Services []Service `yaml:"services"`
}

// Defaults returns the catalogue with the app ids the platform ships with.
func Defaults() *Catalog {
	return New(
		Service{Key: Auth, AppID: 15, Name: "auth"},
		Service{Key: UserProfile, AppID: 13, Name: "userprofile"},
		Service{Key: OTP, AppID: 14, Name: "otp"},
		Service{Key: Course, AppID: 16, Name: "course"},
	)
}

// New builds a catalogue from the given services. Later entries win on key collision.
func New(services ...Service) *Catalog {
	c := &Catalog{services: make(map[string]Service, len(services))}
	for _, s := range services {
		c.services[s.Key] = s
	}
	return c
}

// Lookup returns the service registered under key.
func (c *Catalog) Lookup(key string) (Service, bool) {
	s, ok := c.services[key]
	return s, ok
}

// MustLookup is Lookup for keys the program cannot run without.
func (c *Catalog) MustLookup(key string) Service {
	s, ok := c.Lookup(key)
	if !ok {
		panic(fmt.Sprintf("❌ FATAL: logical service %q is not in the catalogue", key))
	}
	return s
}

// SetAppID overrides the app id of an existing entry. Ids <= 0 are ignored.
func (c *Catalog) SetAppID(key string, appID int) {
	if appID <= 0 {
		return
	}
	s, ok := c.services[key]
	if !ok {
		s = Service{Key: key, Name: key}
	}
	s.AppID = appID
	c.services[key] = s
}

// All returns every service sorted by key.
func (c *Catalog) All() []Service {
	out := make([]Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Merge reads a YAML catalogue file and merges its entries over c.
func (c *Catalog) Merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	return c.merge(data)
}

func (c *Catalog) merge(data []byte) error {
	var f fileSchema
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	for i, s := range f.Services {
		if s.Key == "" {
			return fmt.Errorf("catalog entry %d: key is required", i)
		}
		if s.AppID <= 0 {
			return fmt.Errorf("catalog entry %q: app_id must be > 0, got %d", s.Key, s.AppID)
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		c.services[s.Key] = s
	}
	return nil
}
