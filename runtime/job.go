package runtime

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/reader"
	"github.com/saylorsolutions/logdissect/plugin"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "LOGDISSECT"

	defaultInputClass  = "std.In"
	defaultOutputClass = "std.Out"
	defaultWorkers     = 1
)

var (
	ErrInvalidJob = errors.New("invalid job")
)

// Endpoint references a registered source or sink class, like "file.File", and its arguments.
type Endpoint struct {
	Class string   `mapstructure:"class"`
	Args  []string `mapstructure:"args"`
}

// Remapping gives the field Name an additional Type, so the dissectors of that type can consume it.
type Remapping struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// Rename moves the record field From to To before it's written. A From ending in "*" renames every field under it, using To as a prefix.
type Rename struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Job describes one dissection run: where lines come from, how they're dissected, and where records go.
type Job struct {
	// Format is the httpd LogFormat of the input lines. Multiple formats may be given, one per line.
	Format     string      `mapstructure:"format"`
	Fields     []string    `mapstructure:"fields"`
	Remappings []Remapping `mapstructure:"remappings"`
	Renames    []Rename    `mapstructure:"renames"`
	Input      Endpoint    `mapstructure:"input"`
	Output     Endpoint    `mapstructure:"output"`
	// Workers greater than 1 dissects lines in parallel, without preserving their order.
	Workers       int    `mapstructure:"workers"`
	MaxErrorLines int    `mapstructure:"max-error-lines"`
	MaxDepth      int    `mapstructure:"max-depth"`
	StartPattern  string `mapstructure:"start-pattern"`
	// Lines matching SkipPattern are dropped before they're dissected, and aren't counted.
	SkipPattern string `mapstructure:"skip-pattern"`
	// LineField is the input field holding the line to dissect.
	LineField  string   `mapstructure:"line-field"`
	KeepFields []string `mapstructure:"keep-fields"`
}

func newJobViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("format", "")
	v.SetDefault("fields", []string{})
	v.SetDefault("input.class", defaultInputClass)
	v.SetDefault("input.args", []string{})
	v.SetDefault("output.class", defaultOutputClass)
	v.SetDefault("output.args", []string{})
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("max-error-lines", reader.DefaultMaxErrorLines)
	v.SetDefault("max-depth", dissect.DefaultMaxDepth)
	v.SetDefault("start-pattern", "")
	v.SetDefault("skip-pattern", "")
	v.SetDefault("line-field", entries.StandardMessageField)
	v.SetDefault("keep-fields", []string{})
	return v
}

// LoadJob reads a job from a YAML file at path, and validates it.
// Any value may be overridden with a LOGDISSECT_ environment variable, like LOGDISSECT_INPUT_CLASS.
// If path is empty, the job is read only from the environment.
func LoadJob(path string) (*Job, error) {
	job, err := ReadJob(path)
	if err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// ReadJob is like LoadJob, without validation.
func ReadJob(path string) (*Job, error) {
	v := newJobViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFound viper.ConfigFileNotFoundError
			if errors.As(err, &configFileNotFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: job file '%s' not found", ErrInvalidJob, path)
			}
			return nil, err
		}
	}
	job := new(Job)
	if err := v.Unmarshal(job); err != nil {
		return nil, err
	}
	return job, nil
}

// validateFormat checks only what's needed to build a parser.
func (j *Job) validateFormat() error {
	if strings.TrimSpace(j.Format) == "" {
		return fmt.Errorf("%w: a format is required", ErrInvalidJob)
	}
	for _, r := range j.Remappings {
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Type) == "" {
			return fmt.Errorf("%w: remapping requires a name and a type", ErrInvalidJob)
		}
	}
	return nil
}

// Validate checks the job for errors that don't depend on the registered plugins, and fills in defaults.
func (j *Job) Validate() error {
	if err := j.validateFormat(); err != nil {
		return err
	}
	if len(j.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidJob)
	}
	if j.Input.Class == "" {
		j.Input.Class = defaultInputClass
	}
	if j.Output.Class == "" {
		j.Output.Class = defaultOutputClass
	}
	if _, _, err := plugin.SplitClass(j.Input.Class); err != nil {
		return fmt.Errorf("%w: input: %w", ErrInvalidJob, err)
	}
	if _, _, err := plugin.SplitClass(j.Output.Class); err != nil {
		return fmt.Errorf("%w: output: %w", ErrInvalidJob, err)
	}
	for _, r := range j.Renames {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("%w: rename requires from and to", ErrInvalidJob)
		}
	}
	if j.Workers < 1 {
		j.Workers = defaultWorkers
	}
	if j.LineField == "" {
		j.LineField = entries.StandardMessageField
	}
	if j.StartPattern != "" {
		if _, err := regexp.Compile(j.StartPattern); err != nil {
			return fmt.Errorf("%w: start-pattern: %w", ErrInvalidJob, err)
		}
	}
	if j.SkipPattern != "" {
		if _, err := regexp.Compile(j.SkipPattern); err != nil {
			return fmt.Errorf("%w: skip-pattern: %w", ErrInvalidJob, err)
		}
	}
	return nil
}

func (j *Job) remappings() dissect.Remappings {
	r := dissect.Remappings{}
	for _, m := range j.Remappings {
		r = r.Add(strings.TrimSpace(m.Name), strings.TrimSpace(m.Type))
	}
	return r
}

func (j *Job) renames() entries.RenameSpec {
	if len(j.Renames) == 0 {
		return nil
	}
	spec := entries.NewRenameSpec()
	for _, r := range j.Renames {
		spec.Move(r.From, r.To)
	}
	return spec
}
