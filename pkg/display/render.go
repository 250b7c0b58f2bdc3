// Package display centralizes terminal output formatting so commands never
// reach for fmt directly when rendering structured data.
package display

import (
	"encoding/json"
	"io"
	"os"

	cerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by the --format flag.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// JSONTo writes data as indented JSON.
func JSONTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// JSONToStdout writes data as indented JSON to stdout.
func JSONToStdout(data interface{}) error {
	return JSONTo(os.Stdout, data)
}

// YAMLTo writes data as YAML.
func YAMLTo(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

// Render dispatches structured output by format name. Table rendering is
// caller-specific, so Render covers only the machine formats.
func Render(w io.Writer, format string, data interface{}) error {
	switch format {
	case FormatJSON:
		return JSONTo(w, data)
	case FormatYAML:
		return YAMLTo(w, data)
	default:
		return cerr.Newf("unsupported output format %q", format)
	}
}
