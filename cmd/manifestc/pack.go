package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const opPack = "manifestc.pack"

// Description is the TOML input of the pack command.
//
//	mount = "data"
//
//	[[resources]]
//	name = "text_resource"
//	type = "text"
//	hints = ["permanent"]
//	text = "Hello"
//	dependencies = ["other"]
type Description struct {
	// Mount is the archive mount the data file is read from at runtime.
	Mount     string         `toml:"mount"`
	Resources []ResourceDesc `toml:"resources"`
}

type ResourceDesc struct {
	Name         string   `toml:"name"`
	Type         string   `toml:"type"`
	Hints        []string `toml:"hints"`
	Dependencies []string `toml:"dependencies"`
	// Text is inline content. File is read relative to the description.
	Text string `toml:"text"`
	File string `toml:"file"`
}

func runPack(args []string, stderr io.Writer, logger *log.Logger) error {
	fs := newFlagSet("pack", stderr)
	in := fs.String("in", "", "TOML description of the resources")
	out := fs.String("out", "", "manifest file to write")
	data := fs.String("data", "", "data file to write; defaults to the manifest name with a .bin extension")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	if *data == "" {
		*data = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".bin"
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		return core.Wrap(core.KindIO, opPack, err).WithPath(*in)
	}
	var desc Description
	if err := toml.Unmarshal(raw, &desc); err != nil {
		return core.Wrap(core.KindFormat, opPack, err).WithPath(*in)
	}

	m, blob, err := pack(desc, filepath.Dir(*in), filepath.Base(*data))
	if err != nil {
		return err
	}
	if err := resources.ValidateManifests(m); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := resources.EncodeManifest(&buf, m); err != nil {
		return err
	}
	if err := os.WriteFile(*data, blob, 0o644); err != nil {
		return core.Wrap(core.KindIO, opPack, err).WithPath(*data)
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return core.Wrap(core.KindIO, opPack, err).WithPath(*out)
	}

	logger.Info("Packed manifest", "manifest", *out, "data", *data, "resources", len(m.Entries), "bytes", len(blob))
	return nil
}

// pack lays payloads out back to back, each as a u64 length followed by the
// bytes, and points every non-empty entry at its offset in dataName.
func pack(desc Description, baseDir, dataName string) (*resources.Manifest, []byte, error) {
	mount := desc.Mount
	if mount == "" {
		mount = "data"
	}
	dataPath := path.Join(mount, dataName)

	m := &resources.Manifest{Version: resources.ManifestVersion}
	var blob bytes.Buffer
	for _, r := range desc.Resources {
		typ, err := resources.ParseType(r.Type)
		if err != nil {
			return nil, nil, core.Wrap(core.KindFormat, opPack, err).WithResource(r.Name).WithField("type")
		}
		hints, err := resources.ParseHints(r.Hints)
		if err != nil {
			return nil, nil, core.Wrap(core.KindFormat, opPack, err).WithResource(r.Name).WithField("hints")
		}

		content, err := r.content(baseDir)
		if err != nil {
			return nil, nil, err
		}

		e := resources.Entry{Type: typ, Hints: hints, Name: r.Name, Dependencies: r.Dependencies}
		if typ == resources.TypeEmpty {
			if content != nil {
				return nil, nil, core.Errorf(core.KindFormat, opPack, "empty resources carry no data").WithResource(r.Name)
			}
			m.Entries = append(m.Entries, e)
			continue
		}

		e.Path = dataPath
		e.Offset = uint64(blob.Len())
		if err := core.WriteUint(&blob, uint64(len(content))); err != nil {
			return nil, nil, core.Wrap(core.KindIO, opPack, err).WithResource(r.Name)
		}
		blob.Write(content)
		m.Entries = append(m.Entries, e)
	}
	return m, blob.Bytes(), nil
}

// content returns nil when the resource has neither inline text nor a file.
func (r ResourceDesc) content(baseDir string) ([]byte, error) {
	switch {
	case r.Text != "" && r.File != "":
		return nil, core.Errorf(core.KindFormat, opPack, "text and file are mutually exclusive").WithResource(r.Name)
	case r.Text != "":
		return []byte(r.Text), nil
	case r.File != "":
		p := r.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, core.Wrap(core.KindIO, opPack, err).WithResource(r.Name).WithPath(p)
		}
		return b, nil
	}
	return nil, nil
}
