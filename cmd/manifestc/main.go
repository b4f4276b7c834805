// Command manifestc builds and checks resource manifests offline.
//
//	manifestc pack -in desc.toml -out text.mri -data text.bin
//	manifestc inspect text.mri
//	manifestc validate a.mri b.mri
//	manifestc cat -root assets -manifest data/text.mri text_resource
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const usage = `manifestc - build and check resource manifests

Usage:
  manifestc pack -in DESC.toml -out MANIFEST.mri -data DATA.bin
  manifestc inspect MANIFEST.mri
  manifestc validate MANIFEST.mri...
  manifestc cat -root DIR [-mount data] -manifest PATH NAME
`

// errUsage reports bad arguments; usage has already been printed.
var errUsage = errors.New("invalid arguments")

func main() {
	logger := core.NewLogger(core.LogConfig{Level: "info", Prefix: "manifestc", Output: os.Stderr})
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, logger); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		core.Fatal(logger, err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger *log.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "pack":
		return runPack(rest, stderr, logger)
	case "inspect":
		return runInspect(rest, stdout, stderr)
	case "validate":
		return runValidate(rest, stdout, stderr)
	case "cat":
		return runCat(ctx, rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return errUsage
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("manifestc "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func readManifest(path string) (*resources.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.Wrap(core.KindIO, "manifestc", err).WithPath(path)
	}
	defer f.Close()

	m, err := resources.DecodeManifest(f)
	if err != nil {
		var e *core.Error
		if errors.As(err, &e) {
			e.Path = path
		}
		return nil, err
	}
	return m, nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	m, err := readManifest(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "version %d, %d resources\n", m.Version, len(m.Entries))
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tHINTS\tOFFSET\tPATH\tDEPENDENCIES")
	for i, e := range m.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%v\n", i, e.Name, e.Type, e.Hints, e.Offset, e.Path, e.Dependencies)
	}
	return tw.Flush()
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("validate", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	ms := make([]*resources.Manifest, 0, fs.NArg())
	for _, path := range fs.Args() {
		m, err := readManifest(path)
		if err != nil {
			return err
		}
		ms = append(ms, m)
	}
	if err := resources.ValidateManifests(ms...); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok: %d manifests\n", len(ms))
	return nil
}

func runCat(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("cat", stderr)
	root := fs.String("root", ".", "directory mounted as the archive")
	mount := fs.String("mount", "data", "mount name of the archive")
	manifest := fs.String("manifest", "", "manifest path inside the mount table, e.g. data/text.mri")
	capacity := fs.Uint("capacity", 1024, "resource manager capacity")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *manifest == "" || fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	dir, err := archive.NewDir(*root)
	if err != nil {
		return err
	}
	afs := archive.NewFS()
	if err := afs.Mount(*mount, dir); err != nil {
		return err
	}

	m, err := resources.New(resources.Config{
		MaxResourceCount: uint32(*capacity),
		Logger:           core.DiscardLogger(),
		FS:               afs,
	})
	if err != nil {
		return err
	}
	defer m.Terminate()

	if err := m.AddManifest(ctx, *manifest); err != nil {
		return err
	}
	ref, err := m.Find(fs.Arg(0))
	if err != nil {
		return err
	}
	info, err := m.Info(ref)
	if err != nil {
		return err
	}
	a, err := m.Open(ctx, ref, info.Type)
	if err != nil {
		return err
	}
	defer m.Close(a)

	switch {
	case a.Text() != nil:
		_, err = stdout.Write(a.Text().Bytes())
	case a.Shader() != nil:
		_, err = stdout.Write(a.Shader().Code())
	}
	return err
}
