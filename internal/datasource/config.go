package datasource

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// File is the top-level shape of a data source definition file:
//
//	source "userApi" {
//	  url     = "https://example.com/me"
//	  headers = { Authorization = "Bearer token" }
//	}
type File struct {
	Sources []Definition `hcl:"source,block"`
}

// ParseConfig decodes HCL source definitions. filename is used for
// diagnostics and must end in .hcl.
func ParseConfig(filename string, src []byte) ([]Definition, error) {
	var f File
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	seen := make(map[string]bool, len(f.Sources))
	for _, d := range f.Sources {
		if seen[d.Name] {
			return nil, fmt.Errorf("%s: source %q defined twice", filename, d.Name)
		}
		seen[d.Name] = true
	}
	return f.Sources, nil
}

// LoadConfig reads definitions from an HCL file on disk.
func LoadConfig(path string) ([]Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(path, src)
}
