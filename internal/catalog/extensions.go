package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// extensionFile is the on-disk shape of a catalog extension file:
//
//	languages:
//	  - code: sw
//	    name: Swahili
//	    native_name: Kiswahili
//	  - code: fa
//	    name: Persian
//	    rtl: true
type extensionFile struct {
	Languages []Language `yaml:"languages"`
}

// LoadExtensions returns a new catalog made of base followed by the
// languages listed in r. Extensions may add codes but never override a code
// already present in base.
func LoadExtensions(base *Catalog, r io.Reader) (*Catalog, error) {
	var ext extensionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ext); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return nil, fmt.Errorf("catalog: decode extensions: %w", err)
	}

	langs := base.All()
	for _, l := range ext.Languages {
		if base.Contains(l.Code) {
			return nil, fmt.Errorf("catalog: extension overrides built-in language %q", l.Code)
		}
		langs = append(langs, l)
	}
	return New(langs)
}

// LoadExtensionsFile is LoadExtensions reading from path. An empty path
// returns base unchanged.
func LoadExtensionsFile(base *Catalog, path string) (*Catalog, error) {
	if path == "" {
		return base, nil
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("catalog: open extensions: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadExtensions(base, f)
}
