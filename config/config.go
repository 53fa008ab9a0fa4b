// Package config reads the INI configuration consumed by test cases.
//
// The global configuration holds the CommonData section with the SUT
// addresses and credentials. Each test case may carry its own INI file that
// is layered on top of the global one, later sources overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

const (
	CommonDataSection = "CommonData"

	DefaultIDRACUser = "root"
	DefaultIDRACPwd  = "calvin"
	DefaultOSUser    = "root"
	DefaultOSPwd     = "iamroot"
	DefaultSSHPort   = 22

	redactedSecret = "******"
)

// Config is a read-only view over one or more layered INI sources
type Config struct {
	file    *ini.File
	sources []string
}

// Load reads the given INI files in order. Every path must exist. With no
// paths an empty configuration is returned.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return &Config{file: ini.Empty()}, nil
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %s: %w", p, err)
		}
	}
	sources := make([]interface{}, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, p)
	}
	f, err := ini.LoadSources(ini.LoadOptions{}, sources[0], sources[1:]...)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &Config{file: f, sources: append([]string(nil), paths...)}, nil
}

// Overlay returns a new Config with path layered on top of c. c is not modified.
func (c *Config) Overlay(path string) (*Config, error) {
	return Load(append(append([]string(nil), c.sources...), path)...)
}

// Sources returns the files the configuration was loaded from
func (c *Config) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Section returns the named section, reporting whether it exists
func (c *Config) Section(name string) (Section, bool) {
	if !c.file.HasSection(name) {
		return Section{}, false
	}
	sec, err := c.file.GetSection(name)
	if err != nil {
		return Section{}, false
	}
	return Section{name: name, sec: sec}, true
}

// CommonData returns the SUT connection settings with defaults applied
func (c *Config) CommonData() (CommonData, error) {
	sec, ok := c.Section(CommonDataSection)
	if !ok {
		return CommonData{}, fmt.Errorf("missing [%s] section", CommonDataSection)
	}
	port, err := sec.Int("ssh_port", DefaultSSHPort)
	if err != nil {
		return CommonData{}, err
	}
	cd := CommonData{
		IDRACIP:   sec.String("idrac_ip"),
		IDRACUser: sec.StringOr("idrac_user", DefaultIDRACUser),
		IDRACPwd:  sec.StringOr("idrac_pwd", DefaultIDRACPwd),
		OSIP:      sec.String("os_ip"),
		OSUser:    sec.StringOr("os_user", DefaultOSUser),
		OSPwd:     sec.StringOr("os_pwd", DefaultOSPwd),
		SSHPort:   port,
	}
	if cd.IDRACIP == "" {
		return CommonData{}, fmt.Errorf("[%s] idrac_ip is required", CommonDataSection)
	}
	return cd, nil
}

// Section is a single INI section
type Section struct {
	name string
	sec  *ini.Section
}

// Name returns the section name
func (s Section) Name() string {
	return s.name
}

// Has reports whether key is set in the section
func (s Section) Has(key string) bool {
	return s.sec != nil && s.sec.HasKey(key)
}

// String returns the value of key, or "" when unset
func (s Section) String(key string) string {
	if !s.Has(key) {
		return ""
	}
	return s.sec.Key(key).String()
}

// StringOr returns the value of key, or def when unset or empty
func (s Section) StringOr(key, def string) string {
	if v := s.String(key); v != "" {
		return v
	}
	return def
}

// Bool parses key as a boolean, returning def when unset
func (s Section) Bool(key string, def bool) (bool, error) {
	if !s.Has(key) {
		return def, nil
	}
	v, err := s.sec.Key(key).Bool()
	if err != nil {
		return false, fmt.Errorf("[%s] %s: invalid boolean %q", s.name, key, s.sec.Key(key).String())
	}
	return v, nil
}

// Int parses key as an integer, returning def when unset
func (s Section) Int(key string, def int) (int, error) {
	if !s.Has(key) {
		return def, nil
	}
	v, err := strconv.Atoi(s.sec.Key(key).String())
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: invalid integer %q", s.name, key, s.sec.Key(key).String())
	}
	return v, nil
}

// Duration parses key as a time.Duration, returning def when unset
func (s Section) Duration(key string, def time.Duration) (time.Duration, error) {
	if !s.Has(key) {
		return def, nil
	}
	v, err := s.sec.Key(key).Duration()
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: invalid duration %q", s.name, key, s.sec.Key(key).String())
	}
	return v, nil
}

// CommonData holds the SUT connection settings shared by every test case
type CommonData struct {
	IDRACIP   string
	IDRACUser string
	IDRACPwd  string
	OSIP      string
	OSUser    string
	OSPwd     string
	SSHPort   int
}

// LogValues returns key/value pairs suitable for structured logging. Passwords are redacted.
func (c CommonData) LogValues() []any {
	return []any{
		"idrac_ip", c.IDRACIP,
		"idrac_user", c.IDRACUser,
		"idrac_pwd", redactedSecret,
		"os_ip", c.OSIP,
		"os_user", c.OSUser,
		"os_pwd", redactedSecret,
	}
}
