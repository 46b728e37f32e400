package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Profile is a launch profile read from a TOML file.
//
// Example:
//
//	executable = "/usr/bin/pwsh"
//	start_script = "${HOME}/PowerShellEditorServices/module/Start-EditorServices.ps1"
//	bundled_modules = "${HOME}/PowerShellEditorServices/module"
//	log_level = "Diagnostic"
//	feature_flags = ["PSReadLine"]
//	request_timeout = "30s"
//
//	[wait]
//	max_attempts = 30
//	interval = "500ms"
//
//	[env]
//	PSModulePath = "${HOME}/modules"
type Profile struct {
	Executable        string            `toml:"executable"`
	StartScript       string            `toml:"start_script"`
	BundledModules    string            `toml:"bundled_modules"`
	AdditionalModules []string          `toml:"additional_modules"`
	HostName          string            `toml:"host_name"`
	HostProfileID     string            `toml:"host_profile_id"`
	HostVersion       string            `toml:"host_version"`
	LogLevel          string            `toml:"log_level"`
	LogPath           string            `toml:"log_path"`
	FeatureFlags      []string          `toml:"feature_flags"`
	EnableConsoleRepl bool              `toml:"enable_console_repl"`
	WaitForDebugger   bool              `toml:"wait_for_debugger"`
	ExecutionPolicy   string            `toml:"execution_policy"`
	SessionsDir       string            `toml:"sessions_dir"`
	RequestTimeout    string            `toml:"request_timeout"`
	Wait              WaitProfile       `toml:"wait"`
	Env               map[string]string `toml:"env"`
}

// WaitProfile is the [wait] table of a launch profile.
type WaitProfile struct {
	MaxAttempts int    `toml:"max_attempts"`
	Interval    string `toml:"interval"`
}

// LoadProfile reads and parses a launch profile at the given path.
// If the file does not exist, it returns an empty Profile (no error).
// ${VAR_NAME} placeholders in string values are expanded from the environment.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}

		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if _, err := toml.Decode(string(data), &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	expandProfileEnvVars(&p)

	if _, _, err := p.durations(); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	return &p, nil
}

// Apply merges the profile into opts. Only values set in the profile
// override opts.
func (p *Profile) Apply(opts *Options) error {
	interval, timeout, err := p.durations()
	if err != nil {
		return err
	}

	proc := &opts.Process

	setString(&proc.ExecutablePath, p.Executable)
	setString(&proc.StartScriptPath, p.StartScript)
	setString(&proc.BundledModulesPath, p.BundledModules)
	setString(&proc.HostName, p.HostName)
	setString(&proc.HostProfileID, p.HostProfileID)
	setString(&proc.HostVersion, p.HostVersion)
	setString(&proc.LogLevel, p.LogLevel)
	setString(&proc.LogPath, p.LogPath)
	setString(&proc.ExecutionPolicy, p.ExecutionPolicy)
	setString(&opts.SessionsDir, p.SessionsDir)

	if len(p.AdditionalModules) > 0 {
		proc.AdditionalModules = append([]string(nil), p.AdditionalModules...)
	}

	if len(p.FeatureFlags) > 0 {
		proc.FeatureFlags = append([]string(nil), p.FeatureFlags...)
	}

	if p.EnableConsoleRepl {
		proc.EnableConsoleRepl = true
	}

	if p.WaitForDebugger {
		proc.WaitForDebugger = true
	}

	if len(p.Env) > 0 {
		if proc.Env == nil {
			proc.Env = make(map[string]string, len(p.Env))
		}

		for k, v := range p.Env {
			proc.Env[k] = v
		}
	}

	if p.Wait.MaxAttempts > 0 {
		opts.WaitMaxAttempts = p.Wait.MaxAttempts
	}

	if interval > 0 {
		opts.WaitInterval = interval
	}

	if timeout != 0 {
		opts.RequestTimeout = timeout
	}

	return nil
}

func (p *Profile) durations() (interval, timeout time.Duration, err error) {
	if p.Wait.Interval != "" {
		interval, err = time.ParseDuration(p.Wait.Interval)
		if err != nil {
			return 0, 0, fmt.Errorf("wait.interval: %w", err)
		}
	}

	if p.RequestTimeout != "" {
		timeout, err = time.ParseDuration(p.RequestTimeout)
		if err != nil {
			return 0, 0, fmt.Errorf("request_timeout: %w", err)
		}
	}

	return interval, timeout, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandProfileEnvVars(p *Profile) {
	for _, s := range []*string{
		&p.Executable,
		&p.StartScript,
		&p.BundledModules,
		&p.HostName,
		&p.HostProfileID,
		&p.HostVersion,
		&p.LogLevel,
		&p.LogPath,
		&p.ExecutionPolicy,
		&p.SessionsDir,
	} {
		*s = expandEnvVars(*s)
	}

	for i := range p.AdditionalModules {
		p.AdditionalModules[i] = expandEnvVars(p.AdditionalModules[i])
	}

	for i := range p.FeatureFlags {
		p.FeatureFlags[i] = expandEnvVars(p.FeatureFlags[i])
	}

	for k, v := range p.Env {
		p.Env[k] = expandEnvVars(v)
	}
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}

		return match // leave unresolved vars as-is
	})
}
