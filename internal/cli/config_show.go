package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskclock/internal/config"
	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/logging"
)

// Configuration value sources, highest precedence first.
const (
	SourceEnv     = "env"
	SourceProject = "project"
	SourceGlobal  = "global"
	SourceDefault = "default"
)

// ConfigValueWithSource is one effective value and where it came from.
type ConfigValueWithSource struct {
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// ConfigSection is one top-level configuration block with ordered keys.
type ConfigSection struct {
	Name   string                           `json:"-"`
	Keys   []string                         `json:"-"`
	Values map[string]ConfigValueWithSource `json:"-"`
}

// AnnotatedConfig is the effective configuration with per-key sources.
type AnnotatedConfig struct {
	Sections []ConfigSection
}

// MarshalJSON renders the sections as nested objects.
func (a *AnnotatedConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]ConfigValueWithSource, len(a.Sections))
	for _, s := range a.Sections {
		out[s.Name] = s.Values
	}
	return json.Marshal(out)
}

// ConfigShowFlags holds flags specific to the config show command.
type ConfigShowFlags struct {
	// OutputFormat specifies the output format (yaml or json).
	OutputFormat string
}

// AddConfigCommand adds the config command group to root.
func AddConfigCommand(root *cobra.Command, global *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect taskclock configuration",
	}
	cmd.AddCommand(newConfigShowCmd(global, &ConfigShowFlags{}))
	root.AddCommand(cmd)
}

func newConfigShowCmd(global *GlobalFlags, flags *ConfigShowFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective taskclock configuration with source annotations.

Each value is marked with where it comes from:
  - default: built-in default value
  - global: ~/.taskclock/config.yaml
  - project: .taskclock.yaml in the working directory
  - env: a TASKCLOCK_* environment variable

The API key is read from the environment and is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := flags.OutputFormat
			if global.Output == OutputJSON {
				format = "json"
			}
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVar(&flags.OutputFormat, "format", "yaml", "output format (yaml|json)")

	return cmd
}

func runConfigShow(ctx context.Context, w io.Writer, format string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	annotated, err := buildAnnotatedConfig(cfg)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "json":
		return outputConfigJSON(w, annotated)
	case "yaml":
		return outputConfigYAML(w, annotated)
	default:
		return fmt.Errorf("%w: %s (use yaml or json)", errors.ErrInvalidOutputFormat, format)
	}
}

// buildAnnotatedConfig walks the effective configuration in declaration
// order and tags each key with its source.
func buildAnnotatedConfig(cfg *config.Config) (*AnnotatedConfig, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode configuration")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if len(doc.Content) == 0 {
		return &AnnotatedConfig{}, nil
	}

	globalValues := loadGlobalConfigOnly()
	projectValues := loadConfigFile(config.ProjectConfigPath())

	annotated := &AnnotatedConfig{}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		section := ConfigSection{Name: name, Values: make(map[string]ConfigValueWithSource)}

		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			var value any
			if err := body.Content[j+1].Decode(&value); err != nil {
				return nil, errors.Wrapf(err, "failed to decode %s.%s", name, key)
			}
			section.Keys = append(section.Keys, key)
			section.Values[key] = determineSource(name+"."+key, value, globalValues, projectValues)
		}

		if name == "ai" {
			section.Keys = append(section.Keys, "api_key")
			section.Values["api_key"] = ConfigValueWithSource{
				Value:  logging.RedactIfSensitive("api_key", os.Getenv(cfg.AI.APIKeyEnvVar)),
				Source: SourceEnv,
			}
		}

		annotated.Sections = append(annotated.Sections, section)
	}

	return annotated, nil
}

// configValues holds the dotted keys set in one config file.
type configValues map[string]struct{}

func loadGlobalConfigOnly() configValues {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return nil
	}
	return loadConfigFile(path)
}

// loadConfigFile returns the dotted keys present in the YAML file at path.
// Missing or unparsable files yield nil.
func loadConfigFile(path string) configValues {
	data, err := os.ReadFile(path) //nolint:gosec // config file path
	if err != nil {
		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}

	result := make(configValues)
	for section, body := range raw {
		fields, ok := body.(map[string]any)
		if !ok {
			continue
		}
		for key := range fields {
			result[section+"."+key] = struct{}{}
		}
	}
	return result
}

// determineSource reports where the value for a dotted key came from.
func determineSource(key string, value any, globalValues, projectValues configValues) ConfigValueWithSource {
	envKey := constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if _, ok := os.LookupEnv(envKey); ok {
		return ConfigValueWithSource{Value: value, Source: SourceEnv}
	}
	if _, ok := projectValues[key]; ok {
		return ConfigValueWithSource{Value: value, Source: SourceProject}
	}
	if _, ok := globalValues[key]; ok {
		return ConfigValueWithSource{Value: value, Source: SourceGlobal}
	}
	return ConfigValueWithSource{Value: value, Source: SourceDefault}
}

func outputConfigJSON(w io.Writer, annotated *AnnotatedConfig) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(annotated)
}

// configShowStyles holds lipgloss styles for the YAML view.
type configShowStyles struct {
	header  lipgloss.Style
	section lipgloss.Style
	key     lipgloss.Style
	dim     lipgloss.Style
	sources map[string]lipgloss.Style
}

func newConfigShowStyles() *configShowStyles {
	return &configShowStyles{
		header:  lipgloss.NewStyle().Bold(true),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}),
		key:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}),
		sources: map[string]lipgloss.Style{
			SourceEnv:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}),
			SourceProject: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}),
			SourceGlobal:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}),
			SourceDefault: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}),
		},
	}
}

func outputConfigYAML(w io.Writer, annotated *AnnotatedConfig) error {
	styles := newConfigShowStyles()

	_, _ = fmt.Fprintln(w, styles.header.Render("Effective taskclock configuration"))
	_, _ = fmt.Fprintln(w, styles.dim.Render("Sources: ")+
		styles.sources[SourceEnv].Render(SourceEnv)+" > "+
		styles.sources[SourceProject].Render(SourceProject)+" > "+
		styles.sources[SourceGlobal].Render(SourceGlobal)+" > "+
		styles.sources[SourceDefault].Render(SourceDefault))

	for _, section := range annotated.Sections {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.section.Render(section.Name+":"))
		for _, key := range section.Keys {
			vs := section.Values[key]
			_, _ = fmt.Fprintf(w, "  %s %s  %s\n",
				styles.key.Render(key+":"),
				formatConfigValue(vs.Value),
				styles.sources[vs.Source].Render("# "+vs.Source),
			)
		}
	}
	return nil
}

func formatConfigValue(v any) string {
	switch val := v.(type) {
	case nil:
		return `""`
	case string:
		if val == "" {
			return `""`
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}
