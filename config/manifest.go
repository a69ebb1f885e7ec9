// Package config loads a YAML pack manifest and translates it into a
// vpk.PackOptions, so `vpk pack` can be driven by a file instead of a
// wall of flags. It never touches the core model directly, only
// produces the options struct the core packer already accepts.
package config

import (
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/vpk"
)

// Manifest is the YAML document accepted by `vpk pack --config`:
//
//	source: assets/
//	output: build/pak01
//	version: 2
//	strategy: max-archive-size
//	maxArchiveSize: 200M
//	maxInlineSize: 8K
//	alignment: 4096
//	md5ChunkSize: 1M
type Manifest struct {
	Source         string `yaml:"source"`
	Output         string `yaml:"output"`
	Version        uint32 `yaml:"version"`
	Strategy       string `yaml:"strategy"`
	MaxArchiveSize string `yaml:"maxArchiveSize"`
	MaxInlineSize  string `yaml:"maxInlineSize"`
	Alignment      int64  `yaml:"alignment"`
	Md5ChunkSize   string `yaml:"md5ChunkSize"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	const op = "config.Load"
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.Path(path), errors.IO, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.E(op, errors.Path(path), errors.Str(err.Error()))
	}
	return &m, nil
}

// PackOptions translates the manifest into the PackOptions the core
// packer accepts, applying the same defaults vpk.DefaultPackOptions
// would for any field the manifest left zero.
func (m *Manifest) PackOptions() (vpk.PackOptions, error) {
	const op = "Manifest.PackOptions"
	opts := vpk.DefaultPackOptions()

	if m.Version != 0 {
		opts.Version = m.Version
	}
	switch m.Strategy {
	case "", "max-archive-size":
		opts.Strategy = vpk.MaxArchiveSize
	case "archive-from-dirname":
		opts.Strategy = vpk.ArchiveFromDirName
	default:
		return opts, errors.E(op, errors.IllegalArgument,
			errors.Argument("strategy"), errors.Given(m.Strategy))
	}
	if m.MaxArchiveSize != "" {
		n, err := sizefmt.Parse(m.MaxArchiveSize)
		if err != nil {
			return opts, errors.E(op, errors.IllegalArgument,
				errors.Argument("maxArchiveSize"), errors.Given(m.MaxArchiveSize))
		}
		opts.MaxArchiveSize = n
	}
	if m.MaxInlineSize != "" {
		n, err := sizefmt.Parse(m.MaxInlineSize)
		if err != nil {
			return opts, errors.E(op, errors.IllegalArgument,
				errors.Argument("maxInlineSize"), errors.Given(m.MaxInlineSize))
		}
		opts.MaxInlineSize = n
	}
	if m.Md5ChunkSize != "" {
		n, err := sizefmt.Parse(m.Md5ChunkSize)
		if err != nil {
			return opts, errors.E(op, errors.IllegalArgument,
				errors.Argument("md5ChunkSize"), errors.Given(m.Md5ChunkSize))
		}
		opts.Md5ChunkSize = n
	}
	opts.Alignment = m.Alignment

	return opts, nil
}
